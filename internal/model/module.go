package model

import (
	"errors"
	"strings"
)

// Module is a logical document-owning category.
type Module string

const (
	ModuleDriver  Module = "driver"
	ModuleVehicle Module = "vehicle"
)

var ErrInvalidModule = errors.New("module must be driver or vehicle")

// ParseModule normalizes s and rejects unknown modules.
func ParseModule(s string) (Module, error) {
	switch m := Module(strings.ToLower(strings.TrimSpace(s))); m {
	case ModuleDriver, ModuleVehicle:
		return m, nil
	default:
		return "", ErrInvalidModule
	}
}

func (m Module) String() string { return string(m) }
