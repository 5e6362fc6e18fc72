package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/mpyw/e2immu/internal/frontend/frontendtest"
	"github.com/mpyw/e2immu/internal/lattice"
	"github.com/mpyw/e2immu/internal/primary"
	"github.com/mpyw/e2immu/internal/statement"
)

const src = `package p

type Point struct{ x, y int }

func NewPoint(x, y int) *Point { return &Point{x: x, y: y} }

func (p *Point) X() int { return p.x }

type Counter struct {
	frozen bool
	n      int
}

func (c *Counter) Freeze() {
	if c.frozen {
		panic("frozen")
	}
	c.frozen = true
}

func (c *Counter) Inc() {
	if c.frozen {
		panic("frozen")
	}
	c.n++
}

func (c *Counter) IsFrozen() bool { return c.frozen }
`

func encoded(t *testing.T) *Record {
	t.Helper()
	l := frontendtest.Load(t, src)
	res, err := primary.Run(l.Unit, primary.Options{})
	require.NoError(t, err)
	r, err := Encode(l.Unit.PkgPath, res)
	require.NoError(t, err)
	return r
}

func TestEncode(t *testing.T) {
	t.Parallel()

	r := encoded(t)
	assert.Equal(t, SchemaVersion, r.Schema)
	assert.Equal(t, frontendtest.PkgPath, r.Unit)
	assert.NotZero(t, r.Iterations)

	point, ok := r.Lookup(frontendtest.PkgPath + ".Point")
	require.True(t, ok)
	assert.Equal(t, "type", point.Kind)
	assert.Equal(t, int8(lattice.RecursivelyImmutable), point.Properties[lattice.Immutable.String()])

	x, ok := r.Lookup(frontendtest.PkgPath + ".Point.X")
	require.True(t, ok)
	assert.Equal(t, int8(0), x.Properties[lattice.ModifiedMethod.String()])
	assert.Contains(t, x.Annotations, "@not_modified")

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestEncode_Eventual(t *testing.T) {
	t.Parallel()

	r := encoded(t)
	tests := []struct {
		method       string
		eventual     string
		precondition string
	}{
		{"Freeze", "mark(frozen)", "!frozen"},
		{"Inc", "only before(frozen)", "!frozen"},
		{"IsFrozen", "test mark(frozen)", ""},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			t.Parallel()
			e, ok := r.Lookup(frontendtest.PkgPath + ".Counter." + tt.method)
			require.True(t, ok)
			assert.Equal(t, tt.eventual, e.Eventual)
			assert.Equal(t, tt.precondition, e.Precondition)
			if tt.precondition == "" {
				assert.Empty(t, e.Escapes)
				return
			}
			assert.Equal(t, []statement.Index{"0.0.0"}, e.EscapeIndices())
		})
	}
}

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()

	s, err := Open(filepath.Join(t.TempDir(), "nested", "store"))
	require.NoError(t, err)

	_, ok, err := s.Get(frontendtest.PkgPath)
	require.NoError(t, err)
	assert.False(t, ok)

	want := encoded(t)
	require.NoError(t, s.Put(want))
	assert.Equal(t, "example.com_p.e2immu", filepath.Base(s.Path(want.Unit)))

	got, ok, err := s.Get(frontendtest.PkgPath)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	// no temporary files are left behind
	entries, err := os.ReadDir(filepath.Dir(s.Path(want.Unit)))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRead_SchemaMismatch(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "old.e2immu")
	data, err := msgpack.Marshal(&Record{Schema: SchemaVersion + 1, Unit: "u"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	_, err = Read(path)
	assert.ErrorIs(t, err, ErrSchema)
}

func TestNarrow(t *testing.T) {
	t.Parallel()

	t.Run("skips delays", func(t *testing.T) {
		t.Parallel()
		got, err := narrow(func(p lattice.Property) lattice.DV {
			if p == lattice.Final {
				return lattice.Of(1)
			}
			return lattice.Delayed(lattice.InitialDelay("x", p))
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]int8{"final": 1}, got)
	})

	t.Run("out of range", func(t *testing.T) {
		t.Parallel()
		_, err := narrow(func(lattice.Property) lattice.DV { return lattice.Of(1000) })
		assert.Error(t, err)
	})
}
