package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrPayloadMismatch indicates a payload tagged for one job type was offered
// to an operation expecting another. The tag is checked once at the enqueue
// boundary; processors never re-validate it.
var ErrPayloadMismatch = errors.New("payload kind does not match job type")

// Payload is implemented by every stage payload struct.
type Payload interface {
	Kind() Type
}

// AnalyzePayload seeds the pipeline with the topic under consideration.
type AnalyzePayload struct {
	Topic               string `json:"topic"`
	EducationalCategory string `json:"educationalCategory"`
	AgeBracket          string `json:"ageBracket"`
}

func (AnalyzePayload) Kind() Type { return TypeAnalyze }

// GenerateScriptPayload drives script generation for an analyzed topic.
type GenerateScriptPayload struct {
	EducationalCategory string   `json:"educationalCategory"`
	Topic               string   `json:"topic"`
	AgeBracket          string   `json:"ageBracket"`
	CharacterIDs        []string `json:"characterIds,omitempty"`
}

func (GenerateScriptPayload) Kind() Type { return TypeGenerateScript }

// GenerateMediaPayload drives thumbnail, voice, music, and video synthesis.
type GenerateMediaPayload struct {
	ScriptID     string   `json:"scriptId,omitempty"`
	CharacterIDs []string `json:"characterIds,omitempty"`
}

func (GenerateMediaPayload) Kind() Type { return TypeGenerateMedia }

// QualityCheckPayload scores a generated video before human review.
type QualityCheckPayload struct {
	VideoID string `json:"videoId,omitempty"`
}

func (QualityCheckPayload) Kind() Type { return TypeQualityCheck }

// ReviewPayload is the manual approval checkpoint. Approved is written by
// the review gate, never by a processor.
type ReviewPayload struct {
	VideoID  string `json:"videoId,omitempty"`
	Approved bool   `json:"approved"`
}

func (ReviewPayload) Kind() Type { return TypeReview }

// PublishPayload uploads an approved video.
type PublishPayload struct {
	VideoID     string   `json:"videoId,omitempty"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

func (PublishPayload) Kind() Type { return TypePublish }

// TrackPayload records post-publish analytics collection.
type TrackPayload struct {
	PublishedVideoID string `json:"publishedVideoId,omitempty"`
}

func (TrackPayload) Kind() Type { return TypeTrack }

// ReportPayload requests a periodic pipeline report.
type ReportPayload struct {
	Period string `json:"period,omitempty"`
}

func (ReportPayload) Kind() Type { return TypeReport }

// ScorePayload requests an ad-hoc quality score for an existing video.
type ScorePayload struct {
	VideoID string `json:"videoId,omitempty"`
}

func (ScorePayload) Kind() Type { return TypeScore }

// Envelope is the stored wire form of a payload: the kind tag plus the
// stage-specific data object. Inputs carries results handed off from
// completed child jobs, keyed by the child's type.
type Envelope struct {
	Kind   Type                     `json:"kind"`
	Data   json.RawMessage          `json:"data,omitempty"`
	Inputs map[Type]json.RawMessage `json:"inputs,omitempty"`
}

// Encode marshals a typed payload into its envelope form.
func Encode(payload Payload) ([]byte, error) {
	if payload == nil {
		return nil, errors.New("payload is nil")
	}
	kind := payload.Kind()
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown payload kind %q", kind)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return json.Marshal(Envelope{Kind: kind, Data: data})
}

// EncodeFor marshals a typed payload and enforces the tag invariant against
// the job type at the enqueue boundary.
func EncodeFor(jobType Type, payload Payload) ([]byte, error) {
	if payload != nil && payload.Kind() != jobType {
		return nil, fmt.Errorf("%w: payload %q, job %q", ErrPayloadMismatch, payload.Kind(), jobType)
	}
	if payload == nil {
		return json.Marshal(Envelope{Kind: jobType})
	}
	return Encode(payload)
}

// DecodeEnvelope parses a stored payload back into its envelope form.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if len(raw) == 0 {
		return env, errors.New("payload is empty")
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("decode payload envelope: %w", err)
	}
	return env, nil
}

// ValidateEnvelope checks the boundary invariant that the stored payload tag
// matches the job type it is attached to.
func ValidateEnvelope(jobType Type, raw []byte) error {
	env, err := DecodeEnvelope(raw)
	if err != nil {
		return err
	}
	if env.Kind != jobType {
		return fmt.Errorf("%w: payload %q, job %q", ErrPayloadMismatch, env.Kind, jobType)
	}
	return nil
}

// InjectInput merges a completed child's result into a parent payload under
// the child's type key. The parent's own data is left untouched; this is the
// hand-off mechanism that threads stage outputs to not-yet-started parents.
func InjectInput(parentPayload []byte, child Type, result []byte) ([]byte, error) {
	env, err := DecodeEnvelope(parentPayload)
	if err != nil {
		return nil, err
	}
	if env.Inputs == nil {
		env.Inputs = make(map[Type]json.RawMessage, 1)
	}
	if len(result) == 0 {
		result = []byte("null")
	}
	if !json.Valid(result) {
		return nil, fmt.Errorf("child %s result is not valid JSON", child)
	}
	env.Inputs[child] = json.RawMessage(result)
	return json.Marshal(env)
}
