// Package server serves the public directory as a single-page application.
//
// Routing, in order:
//
//   - requests under the API prefix (default /api) go to the API handler
//   - /__tio/metrics, /__tio/live and /__tio/ready expose metrics and health
//   - in dev mode the live reload script path serves the client agent
//   - a path with a known file extension is served from the public
//     directory, 404 when missing
//   - anything else serves public/index.html; in dev mode the client agent
//     script tag is injected before </head>
//
// With https enabled the main listener uses TLS and a plain listener on
// https.httpPort redirects every request to https.
package server
