/*
Package gclplugin registers the [e2immu] analyzer as a golangci-lint module plugin.

# Usage

1. Add a file `.custom-gcl.yaml` to your source with:

	---
	version: v2.7.0

	name: golangci-lint
	destination: .

	plugins:
	  - module: github.com/mpyw/e2immu
	    import: github.com/mpyw/e2immu/gclplugin
	    version: v0.1.0

2. Run `golangci-lint custom` from your project root.

3. Configure the linter in `.golangci.yaml`:

	---
	version: "2"
	linters:
	  default: none
	  enable:
	    - e2immu
	  settings:
	    custom:
	      e2immu:
	        type: module
	        description: "e2immu infers immutability and checks contracts."
	        settings:
	          report-unreachable: true
	          config: e2immu.toml

[e2immu]: https://pkg.go.dev/github.com/mpyw/e2immu
*/
package gclplugin
