package path

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valaphee/flow/internal/value"
)

func TestDataPath(t *testing.T) {
	t.Run("get re-invokes the producer on every pull", func(t *testing.T) {
		d := NewData(1)
		calls := 0
		require.NoError(t, d.Bind(func() (any, error) {
			calls++
			return int32(calls), nil
		}))

		v, err := d.Get()
		require.NoError(t, err)
		assert.Equal(t, int32(1), v)

		v, err = d.Get()
		require.NoError(t, err)
		assert.Equal(t, int32(2), v)
		assert.Equal(t, 2, calls)
	})

	t.Run("pure producer yields equal values on repeated pulls", func(t *testing.T) {
		d := NewData(2)
		require.NoError(t, d.Bind(func() (any, error) { return "v", nil }))
		for i := 0; i < 3; i++ {
			v, err := d.Get()
			require.NoError(t, err)
			assert.Equal(t, "v", v)
		}
	})

	t.Run("second bind fails", func(t *testing.T) {
		d := NewData(3)
		require.NoError(t, d.Bind(func() (any, error) { return nil, nil }))

		err := d.Bind(func() (any, error) { return nil, nil })
		var dbe *DoubleBindError
		require.ErrorAs(t, err, &dbe)
		assert.Equal(t, int32(3), dbe.ID)
	})

	t.Run("unbound pull fails", func(t *testing.T) {
		d := NewData(4)
		_, err := d.Get()
		var ube *UnboundPathError
		require.ErrorAs(t, err, &ube)
		assert.Equal(t, int32(4), ube.ID)
	})

	t.Run("producer errors propagate", func(t *testing.T) {
		d := NewData(5)
		boom := errors.New("boom")
		require.NoError(t, d.Bind(func() (any, error) { return nil, boom }))
		_, err := d.Get()
		assert.ErrorIs(t, err, boom)
	})
}

func TestControlPath(t *testing.T) {
	t.Run("invoke runs the declared body synchronously", func(t *testing.T) {
		c := NewControl(10)
		ran := false
		require.NoError(t, c.Declare(func() error {
			ran = true
			return nil
		}))
		require.NoError(t, c.Invoke())
		assert.True(t, ran)
	})

	t.Run("undeclared invoke is a no-op", func(t *testing.T) {
		c := NewControl(11)
		assert.NoError(t, c.Invoke())
	})

	t.Run("second declare fails", func(t *testing.T) {
		c := NewControl(12)
		require.NoError(t, c.Declare(func() error { return nil }))

		err := c.Declare(func() error { return nil })
		var dbe *DoubleBindError
		require.ErrorAs(t, err, &dbe)
		assert.Equal(t, int32(12), dbe.ID)
	})
}

func TestGetAs(t *testing.T) {
	d := NewData(20)
	require.NoError(t, d.Bind(func() (any, error) { return int32(12), nil }))

	n, err := GetAs[int32](d)
	require.NoError(t, err)
	assert.Equal(t, int32(12), n)

	_, err = GetAs[string](d)
	var tm *value.TypeMismatchError
	require.ErrorAs(t, err, &tm)
	assert.Equal(t, "string", tm.Expected)
	assert.Equal(t, "int", tm.Got)
}

func TestGetNumeric(t *testing.T) {
	d := NewData(21)
	require.NoError(t, d.Bind(func() (any, error) { return "not a number", nil }))
	_, err := GetNumeric(d)
	var tm *value.TypeMismatchError
	require.ErrorAs(t, err, &tm)
}
