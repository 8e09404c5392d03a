package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type entry struct {
	once  sync.Once
	value any
	err   error
}

var (
	dotenv  sync.Once
	entries sync.Map // reflect.Type -> *entry
)

// Load fills v from environment variables described by its `env` tags.
// A .env file in the working directory is read on first use; variables
// already set in the process environment take precedence.
//
// Each config type is parsed once per process. Later calls copy the cached
// value, so packages can load the same struct independently.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	dotenv.Do(func() { _ = godotenv.Load() })

	e, _ := entries.LoadOrStore(reflect.TypeFor[T](), &entry{})
	ent := e.(*entry)
	ent.once.Do(func() {
		var cfg T
		if err := env.Parse(&cfg); err != nil {
			ent.err = errors.Join(ErrParsingConfig, err)
			return
		}
		ent.value = cfg
	})
	if ent.err != nil {
		return ent.err
	}

	*v = ent.value.(T)
	return nil
}

// MustLoad is Load for configs the process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: load %s: %v", reflect.TypeFor[T](), err))
	}
}
