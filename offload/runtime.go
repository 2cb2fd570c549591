package offload

import (
	"fmt"
	"strings"
)

const (
	DefaultHandleType      = "eu.project.rapid.ac.DFE"
	DefaultAccessor        = "getInstance"
	DefaultAvailableMethod = "isRemoteAvailable"
	DefaultExecuteMethod   = "executeRemote"
	DefaultFailureType     = "eu.project.rapid.ac.RemoteExecutionException"
	DefaultLocalPrefix     = "localLocal_"
)

// Runtime names the process-wide remote-execution handle that generated
// wrappers call into. HandleType and FailureType are qualified type names;
// Accessor is a static no-argument method on HandleType returning the handle.
type Runtime struct {
	HandleType      string
	Accessor        string
	AvailableMethod string
	ExecuteMethod   string
	FailureType     string
	// LocalPrefix is prepended to a method's name to form its local twin.
	LocalPrefix string
}

func DefaultRuntime() Runtime {
	return Runtime{
		HandleType:      DefaultHandleType,
		Accessor:        DefaultAccessor,
		AvailableMethod: DefaultAvailableMethod,
		ExecuteMethod:   DefaultExecuteMethod,
		FailureType:     DefaultFailureType,
		LocalPrefix:     DefaultLocalPrefix,
	}
}

// Validate checks that every name is a usable Java identifier or qualified
// name.
func (r Runtime) Validate() error {
	for _, f := range []struct {
		key, value string
		qualified  bool
	}{
		{"handle type", r.HandleType, true},
		{"accessor", r.Accessor, false},
		{"availability method", r.AvailableMethod, false},
		{"execute method", r.ExecuteMethod, false},
		{"failure type", r.FailureType, true},
		{"local prefix", r.LocalPrefix, false},
	} {
		if f.value == "" {
			return fmt.Errorf("runtime %s is empty", f.key)
		}
		parts := []string{f.value}
		if f.qualified {
			parts = strings.Split(f.value, ".")
		}
		for _, p := range parts {
			if !isIdentifier(p) {
				return fmt.Errorf("runtime %s %q is not a valid Java name", f.key, f.value)
			}
		}
	}
	return nil
}

// TwinName is the name of the private method holding the original body of
// the method called name.
func (r Runtime) TwinName(name string) string {
	return r.LocalPrefix + name
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		letter := c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c > 0x7f
		if i == 0 && !letter {
			return false
		}
		if !letter && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
