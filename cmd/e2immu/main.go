// Command e2immu infers immutability and modification properties of Go
// types and checks the //e2immu: contracts written on them.
//
// Usage:
//
//	e2immu ./...
//	e2immu -config e2immu.toml -report-inferred ./...
//
// Or as a vet tool:
//
//	go vet -vettool=$(which e2immu) ./...
package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"github.com/mpyw/e2immu"
)

func main() {
	singlechecker.Main(e2immu.Analyzer)
}
