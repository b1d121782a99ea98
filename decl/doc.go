// Package decl reads class declarations from YAML files.
//
// A declaration file describes classes by the signatures of their native
// methods and the fields they expose, without the Go code itself:
//
//	catalog: v1.0.0
//	classes:
//	  - name: Counter
//	    fields:
//	      - ident: N
//	        set: true
//	    methods:
//	      - name: __iadd__
//	        receiver: exclusive
//	        params:
//	          - {name: other, type: "*Self"}
//	        fallible: true
//
// The catalog entry names the protocol catalog the file was written against.
// Files written for a newer catalog, or another major version, are rejected.
// Plan turns a file into the generation plans trampoline would use,
// collecting definition errors per declaration.
package decl
