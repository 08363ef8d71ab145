package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrProtectedNamespace is returned when retention targets a committed namespace
	ErrProtectedNamespace = errors.New("namespace is not a temp namespace")

	// ErrNoAudio is returned when resolving a reference that has no audio file
	ErrNoAudio = errors.New("artifact has no audio")

	// ErrNotFound is returned when a requested artifact does not exist
	ErrNotFound = errors.New("artifact not found")
)

// StagingHandle points at normalized audio waiting for a transcript
type StagingHandle struct {
	Name      string    // input_<ts>_<session>.wav
	Path      string    // Absolute path inside audio/temp
	SessionID string    // Session that staged the file
	CreatedAt time.Time // Session creation time
}

// Ref identifies a committed artifact triple
type Ref struct {
	Role           Role   `json:"role"`
	BaseName       string `json:"base_name"`
	AudioPath      string `json:"audio_path,omitempty"`
	TranscriptPath string `json:"transcript_path"`
	MetadataPath   string `json:"metadata_path"`
}

// Store persists audio, transcripts and metadata under a root directory
type Store struct {
	root  string
	now   func() time.Time
	newID func() string
}

// New creates the storage tree under root and returns a store for it
func New(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}

	for _, ns := range Namespaces {
		if err := os.MkdirAll(filepath.Join(abs, string(ns)), 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", ns, err)
		}
	}

	return &Store{
		root:  abs,
		now:   time.Now,
		newID: NewID,
	}, nil
}

// Root returns the absolute storage root
func (s *Store) Root() string {
	return s.root
}

// AudioRoot returns the directory static serving should expose
func (s *Store) AudioRoot() string {
	return filepath.Join(s.root, "audio")
}

// Dir returns the absolute directory of a namespace
func (s *Store) Dir(ns Namespace) string {
	return filepath.Join(s.root, string(ns))
}

// Writable reports whether a file can be created in the staging namespace
func (s *Store) Writable() error {
	f, err := os.CreateTemp(s.Dir(NamespaceAudioTemp), ".probe-*")
	if err != nil {
		return err
	}
	f.Close()
	return os.Remove(f.Name())
}

// StageAudio writes canonical audio into the staging namespace
func (s *Store) StageAudio(sessionID string, createdAt time.Time, wav []byte) (StagingHandle, error) {
	name := BaseName(PrefixInput, createdAt, sessionID) + ".wav"
	path := filepath.Join(s.Dir(NamespaceAudioTemp), name)

	if err := os.WriteFile(path, wav, 0644); err != nil {
		os.Remove(path)
		return StagingHandle{}, fmt.Errorf("failed to stage audio: %w", err)
	}

	return StagingHandle{
		Name:      name,
		Path:      path,
		SessionID: sessionID,
		CreatedAt: createdAt,
	}, nil
}

// Discard deletes a staged file; a file that is already gone is not an error
func (s *Store) Discard(h StagingHandle) error {
	if h.Path == "" {
		return nil
	}
	if err := os.Remove(h.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to discard staged audio: %w", err)
	}
	return nil
}

// CommitUserArtifact moves staged audio into the user namespace and writes the
// transcript and metadata under the same base name. If the transcript pair
// cannot be written the audio is moved back to staging so the caller's
// Discard still finds it
func (s *Store) CommitUserArtifact(h StagingHandle, transcript string, meta Metadata) (Ref, error) {
	if meta.Timestamp == "" {
		meta.Timestamp = FormatTimestamp(h.CreatedAt)
	}
	if meta.SessionID == "" {
		meta.SessionID = h.SessionID
	}
	meta.Role = RoleUser

	base := PrefixUser + "_" + meta.Timestamp + "_" + s.newID()
	audioPath := filepath.Join(s.Dir(NamespaceAudioUser), base+".wav")

	if err := os.Rename(h.Path, audioPath); err != nil {
		return Ref{}, fmt.Errorf("failed to commit user audio: %w", err)
	}

	meta.AudioPath = s.relative(audioPath)

	ref, err := s.writeTranscript(RoleUser, base, transcript, meta)
	if err != nil {
		if rerr := os.Rename(audioPath, h.Path); rerr != nil {
			return Ref{}, fmt.Errorf("%w (and failed to restore staged audio: %v)", err, rerr)
		}
		return Ref{}, err
	}

	ref.AudioPath = audioPath
	return ref, nil
}

// CommitAssistantTranscript writes the reply transcript and metadata under a
// fresh assistant base name. Audio follows later with CommitAssistantAudio
func (s *Store) CommitAssistantTranscript(transcript string, meta Metadata) (Ref, error) {
	if meta.Timestamp == "" {
		meta.Timestamp = FormatTimestamp(s.now())
	}
	meta.Role = RoleAssistant

	base := PrefixAssistant + "_" + meta.Timestamp + "_" + s.newID()
	return s.writeTranscript(RoleAssistant, base, transcript, meta)
}

// CommitAssistantAudio writes reply audio under the base name of ref
func (s *Store) CommitAssistantAudio(ref Ref, audio []byte, ext string) (Ref, error) {
	if ref.Role != RoleAssistant || ref.BaseName == "" {
		return ref, fmt.Errorf("cannot attach assistant audio to %s artifact %q", ref.Role, ref.BaseName)
	}
	if len(audio) == 0 {
		return ref, fmt.Errorf("refusing to commit empty assistant audio")
	}

	name := ref.BaseName + "." + strings.TrimPrefix(ext, ".")
	path, err := s.publish(NamespaceAudioTemp, NamespaceAudioAssistant, name, audio)
	if err != nil {
		return ref, fmt.Errorf("failed to commit assistant audio: %w", err)
	}

	ref.AudioPath = path
	return ref, nil
}

// CommitAssistantArtifact writes the transcript and metadata, then the audio,
// under one assistant base name
func (s *Store) CommitAssistantArtifact(audio []byte, ext, transcript string, meta Metadata) (Ref, error) {
	ref, err := s.CommitAssistantTranscript(transcript, meta)
	if err != nil {
		return Ref{}, err
	}
	return s.CommitAssistantAudio(ref, audio, ext)
}

// ResolveAudioRef returns the locator of the artifact's audio relative to the
// audio root, e.g. "assistant_responses/assistant_20250101_120000_ab12cd34.mp3"
func (s *Store) ResolveAudioRef(ref Ref) (string, error) {
	if ref.AudioPath == "" {
		return "", ErrNoAudio
	}

	rel, err := filepath.Rel(s.AudioRoot(), ref.AudioPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("audio %s is outside the audio root", ref.AudioPath)
	}

	return filepath.ToSlash(rel), nil
}

// writeTranscript publishes <base>.txt then <base>_metadata.json. The
// metadata file lands last, so its presence marks a complete pair
func (s *Store) writeTranscript(role Role, base, transcript string, meta Metadata) (Ref, error) {
	encoded, err := meta.encode()
	if err != nil {
		return Ref{}, fmt.Errorf("failed to encode %s metadata: %w", role, err)
	}

	ns := role.transcriptNamespace()

	transcriptPath, err := s.publish(NamespaceTranscriptTemp, ns, base+transcriptSuffix, []byte(transcript))
	if err != nil {
		return Ref{}, fmt.Errorf("failed to write %s transcript: %w", role, err)
	}

	metadataPath, err := s.publish(NamespaceTranscriptTemp, ns, base+metadataSuffix, encoded)
	if err != nil {
		os.Remove(transcriptPath)
		return Ref{}, fmt.Errorf("failed to write %s metadata: %w", role, err)
	}

	return Ref{
		Role:           role,
		BaseName:       base,
		TranscriptPath: transcriptPath,
		MetadataPath:   metadataPath,
	}, nil
}

// publish writes data to a unique file in the temp namespace and renames it
// to name inside dst
func (s *Store) publish(tmp, dst Namespace, name string, data []byte) (string, error) {
	f, err := os.CreateTemp(s.Dir(tmp), "."+name+".*.part")
	if err != nil {
		return "", err
	}
	tmpPath := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", err
	}

	final := filepath.Join(s.Dir(dst), name)
	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)
		return "", err
	}

	return final, nil
}

// relative renders an absolute path relative to the storage root
func (s *Store) relative(path string) string {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
