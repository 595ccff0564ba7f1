package processor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/myownradio/channel-bot/internal/pipeline"
)

// Three namespaces per user hold, respectively, the request Context, the
// mutable State, and the externally-observable Status — spec.md §4.1. These
// are exported so internal/supervisor can enumerate them at startup without
// duplicating the naming convention.

// CtxNamespace is the namespace holding a user's Context records.
func CtxNamespace(user pipeline.UserId) string { return fmt.Sprintf("%d-ctx", user) }

// StateNamespace is the namespace holding a user's State records.
func StateNamespace(user pipeline.UserId) string { return fmt.Sprintf("%d-state", user) }

// StatusNamespace is the namespace holding a user's Status records.
func StatusNamespace(user pipeline.UserId) string { return fmt.Sprintf("%d-status", user) }

// UserFromCtxNamespace recovers the UserId encoded in a "{user}-ctx"
// namespace name, for the supervisor's startup enumeration (spec.md §4.5).
func UserFromCtxNamespace(namespace string) (pipeline.UserId, bool) {
	prefix, ok := strings.CutSuffix(namespace, "-ctx")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0, false
	}
	return pipeline.UserId(id), true
}
