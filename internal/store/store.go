// Package store writes the frozen analyses of a unit to disk so downstream
// tools can read the inferred properties without re-running the engine.
//
// One file per unit lives in the store directory:
//
//	<dir>/
//	 ├── example.com_p.e2immu       msgpack-encoded [Record]
//	 └── example.com_p_sub.e2immu
//
// Writes go to a temporary file that is renamed into place, so a reader
// never sees a partial record.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/mpyw/e2immu/internal/analysis"
	"github.com/mpyw/e2immu/internal/lattice"
	"github.com/mpyw/e2immu/internal/primary"
	"github.com/mpyw/e2immu/internal/statement"
)

// SchemaVersion changes whenever the layout of [Record] does.
const SchemaVersion uint16 = 2

// ErrSchema is returned when a record was written by another schema version.
var ErrSchema = errors.New("store schema mismatch")

// Record is the stored form of one unit's analyses.
type Record struct {
	Schema     uint16   `msgpack:"schema"`
	Unit       string   `msgpack:"unit"`
	Iterations uint8    `msgpack:"iterations"`
	Entities   []Entity `msgpack:"entities"`
}

// Entity is the stored form of one frozen analysis.
type Entity struct {
	Kind        string          `msgpack:"kind"`
	Name        string          `msgpack:"name"`
	Properties  map[string]int8 `msgpack:"properties"`
	Annotations []string        `msgpack:"annotations,omitempty"`
	// Eventual is the status of an eventual method, e.g. "mark(count)".
	Eventual string `msgpack:"eventual,omitempty"`
	// Precondition is what a method requires of its caller, e.g. "!frozen".
	Precondition string `msgpack:"precondition,omitempty"`
	// Escapes holds the encoded statement indices of the escapes behind Precondition.
	Escapes [][]uint16 `msgpack:"escapes,omitempty"`
}

// EscapeIndices decodes [Entity.Escapes].
func (e Entity) EscapeIndices() []statement.Index {
	out := make([]statement.Index, len(e.Escapes))
	for i, enc := range e.Escapes {
		out[i] = statement.DecodeIndex(enc)
	}
	return out
}

// Lookup returns the entity with the given fully qualified name.
func (r *Record) Lookup(name string) (Entity, bool) {
	for _, e := range r.Entities {
		if e.Name == name {
			return e, true
		}
	}
	return Entity{}, false
}

// Encode converts a frozen result to a record.
func Encode(unit string, res *primary.Result) (*Record, error) {
	iterations, err := safecast.Conv[uint8](res.Iterations)
	if err != nil {
		return nil, fmt.Errorf("iterations of %s: %w", unit, err)
	}
	r := &Record{Schema: SchemaVersion, Unit: unit, Iterations: iterations}
	add := func(kind, name string, get func(lattice.Property) lattice.DV, ann []analysis.Annotation) (*Entity, error) {
		props, err := narrow(get)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", kind, name, err)
		}
		r.Entities = append(r.Entities, Entity{Kind: kind, Name: name, Properties: props, Annotations: annotationStrings(ann)})
		return &r.Entities[len(r.Entities)-1], nil
	}
	for _, a := range res.Types {
		if _, err := add("type", a.Type.FullyQualifiedName(), a.Property, a.Annotations()); err != nil {
			return nil, err
		}
	}
	for _, a := range res.Methods {
		e, err := add("method", a.Method.FullyQualifiedName(), a.Property, a.Annotations())
		if err != nil {
			return nil, err
		}
		if ev := a.Eventual(); ev.Done && ev.V.Kind != analysis.NotEventual {
			e.Eventual = ev.V.String()
		}
		if pre := a.Precondition(); pre.Done && !pre.V.IsEmpty() {
			e.Precondition = pre.V.String()
			for _, c := range pre.V.Causes {
				enc, err := statement.Index(c).Encode()
				if err != nil {
					return nil, fmt.Errorf("method %s: %w", e.Name, err)
				}
				e.Escapes = append(e.Escapes, enc)
			}
		}
	}
	for _, a := range res.Fields {
		if _, err := add("field", a.Field.FullyQualifiedName(), a.Property, a.Annotations()); err != nil {
			return nil, err
		}
	}
	for _, a := range res.Parameters {
		if _, err := add("parameter", a.Parameter.FullyQualifiedName(), a.Property, a.Annotations()); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// narrow keeps the done properties; every grade fits in an int8.
func narrow(get func(lattice.Property) lattice.DV) (map[string]int8, error) {
	out := make(map[string]int8)
	for _, p := range lattice.AllProperties() {
		dv := get(p)
		if dv.IsDelayed() {
			continue
		}
		v, err := safecast.Conv[int8](dv.Value())
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", p, err)
		}
		out[p.String()] = v
	}
	return out, nil
}

func annotationStrings(list []analysis.Annotation) []string {
	if len(list) == 0 {
		return nil
	}
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.String()
	}
	return out
}

// Store is a directory of records. Passes may write concurrently.
type Store struct {
	mu  sync.Mutex
	dir string
}

// Open creates the store directory when needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Path returns the file a unit is stored in.
func (s *Store) Path(unit string) string {
	return filepath.Join(s.dir, strings.ReplaceAll(unit, "/", "_")+".e2immu")
}

// Put writes a record, replacing the previous one of the same unit.
func (s *Store) Put(r *Record) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(r.Unit)
	f, err := os.CreateTemp(s.dir, "tmp-*")
	if err != nil {
		return fmt.Errorf("storing %s: %w", r.Unit, err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	if err = msgpack.NewEncoder(f).Encode(r); err != nil {
		return fmt.Errorf("encoding %s: %w", r.Unit, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("storing %s: %w", r.Unit, err)
	}
	if err = os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("storing %s: %w", r.Unit, err)
	}
	return nil
}

// Get reads the record of a unit; ok is false when none was stored.
func (s *Store) Get(unit string) (r *Record, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err = Read(s.Path(unit))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return r, true, nil
}

// Read decodes the record file at path.
func Read(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r Record
	if err := msgpack.NewDecoder(f).Decode(&r); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if r.Schema != SchemaVersion {
		return nil, fmt.Errorf("%s: %w: got %d, want %d", path, ErrSchema, r.Schema, SchemaVersion)
	}
	return &r, nil
}
