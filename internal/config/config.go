// Package config holds the validated settings of the opgen commands. Struct
// fields carry the name of the flag that sets them, so validation errors
// point at flags.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Schema locates the schema: introspection JSON (.json) or SDL.
type Schema struct {
	Path string `flag:"schema" validate:"required"`
}

// Operation selects a root field and how its document is built.
type Operation struct {
	Kind     string   `flag:"kind" validate:"oneof=query mutation subscription"`
	Name     string   `flag:"op" validate:"required"`
	Args     string   `flag:"args" validate:"omitempty,json"`
	Ignore   []string `flag:"ignore" validate:"dive,required"`
	MaxDepth int      `flag:"depth" validate:"gte=1,lte=16"`
}

// Endpoint is a GraphQL server.
type Endpoint struct {
	URL          string            `flag:"endpoint" validate:"required,url"`
	WebSocketURL string            `flag:"ws" validate:"omitempty,url"`
	Timeout      time.Duration     `flag:"timeout" validate:"gte=0"`
	Headers      map[string]string `flag:"header"`
}

// Telemetry configures the OTLP exporter. An empty endpoint disables it.
type Telemetry struct {
	Endpoint string `flag:"otel.endpoint" validate:"omitempty,hostname_port"`
	Service  string `flag:"otel.service" validate:"required"`
}

type List struct {
	Schema
}

type Build struct {
	Schema
	Operation
	Pretty   bool `flag:"pretty"`
	Validate bool `flag:"validate"`
}

type Sample struct {
	Schema
	Kind string `flag:"kind" validate:"oneof=query mutation subscription"`
	Name string `flag:"op" validate:"required"`
}

type Exec struct {
	Schema
	Operation
	Endpoint
	Telemetry
	Verbose bool `flag:"verbose"`
}

type Introspect struct {
	Endpoint
	Out string `flag:"out"`
}

type SDL struct {
	Schema
	Out string `flag:"out"`
}

var (
	validate *validator.Validate
	once     sync.Once
)

// NewValidate returns the shared validator, which names fields by their
// flag tag.
func NewValidate() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			if name := f.Tag.Get("flag"); name != "" {
				return "-" + name
			}
			return f.Name
		})
	})
	return validate
}

// Validate checks cfg and reports every invalid flag in one error.
func Validate(cfg any) error {
	err := NewValidate().Struct(cfg)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fe.Field()+" "+describe(fe))
	}
	return fmt.Errorf("invalid flags: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "url":
		return "must be a URL"
	case "json":
		return "must be valid JSON"
	case "hostname_port":
		return "must be host:port"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	}
	return "failed " + fe.Tag()
}
