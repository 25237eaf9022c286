package headers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendGetAll_InsertionOrder(t *testing.T) {
	m := New(8)
	m.Append([]byte("Set-Cookie"), []byte("a=1"))
	m.Append([]byte("Set-Cookie"), []byte("b=2"))
	m.Append([]byte("Host"), []byte("example.com"))

	all := m.GetAll([]byte("set-cookie"))
	require.Len(t, all, 2)
	assert.Equal(t, "a=1", string(all[0]))
	assert.Equal(t, "b=2", string(all[1]))

	first, ok := m.Get([]byte("SET-COOKIE"))
	require.True(t, ok)
	assert.Equal(t, "a=1", string(first))
}

func TestCaseInsensitiveEquivalence(t *testing.T) {
	m := New(4)
	m.Append([]byte("Content-Length"), []byte("5"))
	v, ok := m.Get([]byte("content-length"))
	require.True(t, ok)
	assert.Equal(t, "5", string(v))
}

func TestInsertReplacesPriorValues(t *testing.T) {
	m := New(4)
	m.Append([]byte("X-Tag"), []byte("one"))
	m.Append([]byte("X-Tag"), []byte("two"))
	prior := m.Insert([]byte("X-Tag"), []byte("three"))
	require.Len(t, prior, 2)
	all := m.GetAll([]byte("x-tag"))
	require.Len(t, all, 1)
	assert.Equal(t, "three", string(all[0]))
}

func TestRemove(t *testing.T) {
	m := New(4)
	m.Append([]byte("X-A"), []byte("1"))
	m.Append([]byte("X-B"), []byte("2"))
	first, ok := m.Remove([]byte("x-a"))
	require.True(t, ok)
	assert.Equal(t, "1", string(first))
	assert.False(t, m.Has([]byte("X-A")))
	assert.True(t, m.Has([]byte("X-B")))
}

func TestIter_GlobalInsertionOrderAcrossKeys(t *testing.T) {
	m := New(4)
	m.Append([]byte("A"), []byte("1"))
	m.Append([]byte("B"), []byte("2"))
	m.Append([]byte("A"), []byte("3"))
	fields := m.Iter()
	require.Len(t, fields, 3)
	assert.Equal(t, "A", string(fields[0].Name))
	assert.Equal(t, "1", string(fields[0].Value))
	assert.Equal(t, "B", string(fields[1].Name))
	assert.Equal(t, "A", string(fields[2].Name))
	assert.Equal(t, "3", string(fields[2].Value))
}

func TestIter_SkipsSupersededAndRemoved(t *testing.T) {
	m := New(4)
	m.Append([]byte("A"), []byte("1"))
	m.Insert([]byte("A"), []byte("2"))
	m.Append([]byte("B"), []byte("x"))
	m.Remove([]byte("B"))
	fields := m.Iter()
	require.Len(t, fields, 1)
	assert.Equal(t, "A", string(fields[0].Name))
	assert.Equal(t, "2", string(fields[0].Value))
}

func TestGrowthPreservesLookups(t *testing.T) {
	m := New(2)
	for i := 0; i < 100; i++ {
		name := []byte{'H', byte('A' + i%26)}
		m.Append(name, []byte{byte(i)})
	}
	assert.True(t, m.Len() > 0)
	v, ok := m.Get([]byte("HA"))
	require.True(t, ok)
	assert.Equal(t, byte(0), v[0])
}
