package analyzer

import (
	"plc/interpreter-go/pkg/runtime"
)

// comparableTypes provide the Comparable capability.
var comparableTypes = map[*runtime.Type]bool{
	runtime.TypeInteger:   true,
	runtime.TypeDecimal:   true,
	runtime.TypeCharacter: true,
	runtime.TypeString:    true,
}

// IsAssignable reports whether a value of type source may be stored where
// target is expected.
func IsAssignable(target, source *runtime.Type) bool {
	switch {
	case target == source:
		return true
	case target == runtime.TypeAny:
		return true
	case target == runtime.TypeComparable:
		return comparableTypes[source]
	}
	return false
}

func requireAssignable(target, source *runtime.Type) error {
	if !IsAssignable(target, source) {
		return typeErrorf("Type '%s' is not assignable to '%s'", source, target)
	}
	return nil
}

func isNumeric(t *runtime.Type) bool {
	return t == runtime.TypeInteger || t == runtime.TypeDecimal
}
