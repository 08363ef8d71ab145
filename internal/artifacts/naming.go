package artifacts

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout formats the second-granularity timestamp embedded in base names
const TimestampLayout = "20060102_150405"

// Base name prefixes
const (
	PrefixUser      = "user"
	PrefixAssistant = "assistant"
	PrefixInput     = "input"
)

// Role attributes an artifact to one side of the conversation
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole converts a path parameter into a Role
func ParseRole(value string) (Role, error) {
	switch Role(value) {
	case RoleUser, RoleAssistant:
		return Role(value), nil
	}
	return "", fmt.Errorf("unknown role %q", value)
}

// Namespace is a directory in the storage tree, relative to the root
type Namespace string

const (
	NamespaceAudioTemp           Namespace = "audio/temp"
	NamespaceAudioUser           Namespace = "audio/user_messages"
	NamespaceAudioAssistant      Namespace = "audio/assistant_responses"
	NamespaceTranscriptTemp      Namespace = "transcripts/temp"
	NamespaceTranscriptUser      Namespace = "transcripts/user_messages"
	NamespaceTranscriptAssistant Namespace = "transcripts/assistant_responses"
)

// Namespaces lists every directory the store owns
var Namespaces = []Namespace{
	NamespaceAudioTemp,
	NamespaceAudioUser,
	NamespaceAudioAssistant,
	NamespaceTranscriptTemp,
	NamespaceTranscriptUser,
	NamespaceTranscriptAssistant,
}

// TempNamespaces lists the namespaces retention is allowed to sweep
var TempNamespaces = []Namespace{NamespaceAudioTemp, NamespaceTranscriptTemp}

// IsTemp reports whether files in the namespace are transient
func (n Namespace) IsTemp() bool {
	return n == NamespaceAudioTemp || n == NamespaceTranscriptTemp
}

// audioNamespace returns the committed audio namespace for a role
func (r Role) audioNamespace() Namespace {
	if r == RoleAssistant {
		return NamespaceAudioAssistant
	}
	return NamespaceAudioUser
}

// transcriptNamespace returns the committed transcript namespace for a role
func (r Role) transcriptNamespace() Namespace {
	if r == RoleAssistant {
		return NamespaceTranscriptAssistant
	}
	return NamespaceTranscriptUser
}

// File name suffixes shared by every artifact triple
const (
	transcriptSuffix = ".txt"
	metadataSuffix   = "_metadata.json"
)

var baseNamePattern = regexp.MustCompile(`^(user|assistant|input)_\d{8}_\d{6}_[0-9A-Za-z-]{1,36}$`)

// BaseName builds "{prefix}_{YYYYMMDD_HHMMSS}_{id}"
func BaseName(prefix string, ts time.Time, id string) string {
	return fmt.Sprintf("%s_%s_%s", prefix, ts.Format(TimestampLayout), id)
}

// NewID returns an 8-character opaque id
func NewID() string {
	return uuid.NewString()[:8]
}

// ValidBaseName reports whether name is a well-formed base name for role
func ValidBaseName(role Role, name string) bool {
	if name != filepath.Base(name) || !baseNamePattern.MatchString(name) {
		return false
	}
	return strings.HasPrefix(name, string(role)+"_")
}
