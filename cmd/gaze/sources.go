package main

import (
	"encoding/json"
	"strconv"

	"github.com/vango-dev/gaze/internal/config"
	"github.com/vango-dev/gaze/internal/errors"
	"github.com/vango-dev/gaze/pkg/catalog"
	"github.com/vango-dev/gaze/pkg/gaze"
)

// buildCatalog creates one source per declaration.
func buildCatalog(specs []config.SourceConfig) (*catalog.Catalog, error) {
	c := catalog.New()
	for _, s := range specs {
		var err error
		switch s.Type {
		case config.TypeInt:
			err = addSource[int64](c, s)
		case config.TypeFloat:
			err = addSource[float64](c, s)
		case config.TypeString:
			err = addSource[string](c, s)
		case config.TypeBool:
			err = addSource[bool](c, s)
		case config.TypeJSON:
			err = addSource[json.RawMessage](c, s)
		default:
			err = errors.New("G120").
				WithDetail("source " + strconv.Quote(s.Name) + " has unsupported type " + strconv.Quote(s.Type))
		}
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

func addSource[T any](c *catalog.Catalog, s config.SourceConfig) error {
	var initial T
	if len(s.Initial) > 0 {
		if err := json.Unmarshal(s.Initial, &initial); err != nil {
			return errors.New("G121").
				WithDetail("source " + strconv.Quote(s.Name) + ": " + err.Error()).
				Wrap(err)
		}
	}
	if err := catalog.Register(c, s.Name, gaze.NewSource(initial, nil)); err != nil {
		return errors.New("G120").Wrap(err)
	}
	return nil
}
