package lumberbind

import (
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilpntr/lumber/lumbermdc"
)

func TestSingletonIdentity(t *testing.T) {
	a := Singleton()
	b := Singleton()
	require.NotNil(t, a)
	assert.Same(t, a, b)
}

func TestAdapterIsFreshOnEveryCall(t *testing.T) {
	b := Singleton()
	first := b.Adapter()
	second := b.Adapter()

	require.IsType(t, &lumbermdc.NOPAdapter{}, first)
	require.IsType(t, &lumbermdc.NOPAdapter{}, second)
	assert.NotSame(t, first.(*lumbermdc.NOPAdapter), second.(*lumbermdc.NOPAdapter))
}

func TestAdapterTypeNameMatchesAdapter(t *testing.T) {
	b := Singleton()
	typ := reflect.TypeOf(b.Adapter())
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	assert.Equal(t, typ.PkgPath()+"."+typ.Name(), b.AdapterTypeName())
}

func TestAdapterDiscardsWrites(t *testing.T) {
	a := Singleton().Adapter()

	a.Put("request_id", "abc")
	_, ok := a.Get("request_id")
	assert.False(t, ok)

	a.SetContextMap(map[string]string{"request_id": "abc"})
	assert.Empty(t, a.CopyOfContextMap())

	a.Remove("request_id")
	a.Clear()
	_, ok = a.Get("request_id")
	assert.False(t, ok)
}

func TestConcurrentFirstAccessConstructsOnce(t *testing.T) {
	var constructed atomic.Int32
	get := lazyBinder(func() *Binder {
		constructed.Add(1)
		return newBinder()
	})

	const callers = 64
	results := make([]*Binder, callers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = get()
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), constructed.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestOperationsNeverPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		for i := 0; i < 100; i++ {
			b := Singleton()
			_ = b.Adapter()
			_ = b.AdapterTypeName()
		}
	})
}
