// Package config provides configuration parsing for the gaze server.
//
// The configuration is stored in gaze.json. This package handles loading,
// saving, defaulting and validating it.
//
// # Configuration File Structure
//
//	{
//	  "logLevel": "info",
//	  "server": {
//	    "host": "localhost",
//	    "port": 7070,
//	    "allowedOrigins": ["http://localhost:3000"]
//	  },
//	  "metrics": {
//	    "enabled": true,
//	    "path": "/metrics",
//	    "namespace": "gaze"
//	  },
//	  "tracing": {
//	    "enabled": false
//	  },
//	  "snapshot": {
//	    "enabled": true,
//	    "bucket": "my-bucket",
//	    "prefix": "gaze/",
//	    "timeout": "5s"
//	  },
//	  "sources": [
//	    {"name": "count", "type": "int", "initial": 0},
//	    {"name": "title", "type": "string", "initial": "hello"}
//	  ]
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Address())
package config
