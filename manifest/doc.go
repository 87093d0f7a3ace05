// Package manifest turns a declarative resource definition into method
// descriptors and per-call middleware stacks.
//
// A definition names a host and, per resource, the methods it offers:
//
//	def := &manifest.Definition{
//	    Host: "https://api.example.com",
//	    Resources: map[string]map[string]manifest.MethodDefinition{
//	        "User": {
//	            "all":  {Path: "/users"},
//	            "byId": {Path: "/users/{id}"},
//	        },
//	    },
//	}
//
// Definitions load from YAML or JSON files with LoadFile. Middleware
// factories are code-only and attach to a definition or a method.
package manifest
