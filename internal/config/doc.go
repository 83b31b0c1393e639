// Package config provides configuration parsing for tio projects.
//
// The configuration lives in tio.json (or tio.yaml / tio.yml) at the project
// root. The file is optional: a project without one runs with the defaults
// returned by New. The loaded *Config is built once at startup and passed
// to every component constructor; nothing in tio reads configuration from
// globals.
//
// # Configuration File Structure
//
//	{
//	  "host": "localhost",
//	  "port": 3000,
//	  "publicDir": "public",
//	  "srcDir": "src",
//	  "entry": "src/index.js",
//	  "serverDirs": ["plugins", "routes"],
//	  "liveReload": {
//	    "port": 35729,
//	    "protocol": "structured",
//	    "swap": "targeted",
//	    "retryDelay": "2s"
//	  },
//	  "compiler": {
//	    "command": "node",
//	    "args": ["tio.compiler.js"],
//	    "extensions": [".xht", ".ma"]
//	  },
//	  "https": {
//	    "enabled": false,
//	    "httpPort": 80
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    return err
//	}
//	cfg.Mode = config.ModeDev
package config
