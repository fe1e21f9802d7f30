package bot

import (
	"context"
	"strings"
	"sync"

	"github.com/user/anime-bot-go/internal/model"
)

// CatalogWriter is the slice of the store the dialogue commits through
type CatalogWriter interface {
	CreateAnime(ctx context.Context, anime *model.Anime) error
	UpsertEpisode(ctx context.Context, episode *model.Episode) error
}

// intakeStep indexes the strictly linear field sequence of the guided
// catalog-entry dialogue
type intakeStep int

const (
	stepTitle intakeStep = iota
	stepEpisodeCount
	stepCountry
	stepLanguage
	stepYear
	stepGenre
	stepTypeLabel
	stepMedia
)

var intakePrompts = [...]string{
	stepTitle:        "🎬 Enter the anime title:",
	stepEpisodeCount: "🎥 Enter the total episode count:",
	stepCountry:      "🌍 Enter the country:",
	stepLanguage:     "🗣 Enter the language:",
	stepYear:         "📅 Enter the year:",
	stepGenre:        "🎞 Enter the genre:",
	stepTypeLabel:    "🎙 Enter the dub label:",
	stepMedia:        "🖼 Send an image, or a video no longer than 60 seconds:",
}

const invalidAttachmentPrompt = "❌ Please send an image, or a video no longer than 60 seconds!"

// maxIntroVideoSeconds bounds the duration of a video accepted at the
// terminal step
const maxIntroVideoSeconds = 60

// Attachment describes a media message arriving at the terminal step
type Attachment struct {
	FileID   string
	Kind     model.MediaKind
	Duration int // seconds, meaningful for videos only
}

// IntakeResult reports the outcome of one dialogue advance
type IntakeResult struct {
	Prompt  string       // next prompt, or a re-prompt when input was rejected
	Done    bool         // the entry was committed and the session discarded
	Created *model.Anime // set when Done
}

type intakeSession struct {
	mu     sync.Mutex
	step   intakeStep
	fields model.Anime
}

// Intake owns the per-user guided dialogue sessions. Sessions live in
// memory only and are lost on restart. Each user's advances are
// serialized on the session's own mutex; different users never
// contend.
type Intake struct {
	mu       sync.Mutex
	sessions map[int64]*intakeSession
	store    CatalogWriter
}

// NewIntake creates the dialogue component backed by the given store
func NewIntake(st CatalogWriter) *Intake {
	return &Intake{
		sessions: make(map[int64]*intakeSession),
		store:    st,
	}
}

// Start begins a new dialogue for the user, overwriting any stale
// accumulator, and returns the first prompt
func (i *Intake) Start(userID int64) string {
	i.mu.Lock()
	i.sessions[userID] = &intakeSession{step: stepTitle}
	i.mu.Unlock()
	return intakePrompts[stepTitle]
}

// Active reports whether the user has a dialogue in progress
func (i *Intake) Active(userID int64) bool {
	i.mu.Lock()
	_, ok := i.sessions[userID]
	i.mu.Unlock()
	return ok
}

// Cancel discards the user's session, if any
func (i *Intake) Cancel(userID int64) {
	i.mu.Lock()
	delete(i.sessions, userID)
	i.mu.Unlock()
}

func (i *Intake) session(userID int64) *intakeSession {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.sessions[userID]
}

// AdvanceText feeds one text message into the user's dialogue. Empty
// text re-prompts the current step; text at the terminal step
// re-prompts for media.
func (i *Intake) AdvanceText(userID int64, text string) (IntakeResult, bool) {
	s := i.session(userID)
	if s == nil {
		return IntakeResult{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step == stepMedia {
		return IntakeResult{Prompt: invalidAttachmentPrompt}, true
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return IntakeResult{Prompt: intakePrompts[s.step]}, true
	}

	switch s.step {
	case stepTitle:
		s.fields.Title = text
	case stepEpisodeCount:
		s.fields.EpisodesCount = text
	case stepCountry:
		s.fields.Country = text
	case stepLanguage:
		s.fields.Language = text
	case stepYear:
		s.fields.Year = text
	case stepGenre:
		s.fields.Genres = text
	case stepTypeLabel:
		s.fields.TypeLabel = text
	}

	s.step++
	return IntakeResult{Prompt: intakePrompts[s.step]}, true
}

// AdvanceMedia feeds one media message into the user's dialogue. Only
// the terminal step accepts it: an image, or a video of at most 60
// seconds. Anything else re-prompts without changing state. On
// acceptance the catalog entry is committed; a video attachment is
// additionally stored as episode 1.
func (i *Intake) AdvanceMedia(ctx context.Context, userID int64, att Attachment) (IntakeResult, bool, error) {
	s := i.session(userID)
	if s == nil {
		return IntakeResult{}, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != stepMedia {
		return IntakeResult{Prompt: intakePrompts[s.step]}, true, nil
	}

	switch att.Kind {
	case model.MediaPhoto:
	case model.MediaVideo:
		if att.Duration > maxIntroVideoSeconds {
			return IntakeResult{Prompt: invalidAttachmentPrompt}, true, nil
		}
	default:
		return IntakeResult{Prompt: invalidAttachmentPrompt}, true, nil
	}

	entry := s.fields
	entry.ThumbnailID = att.FileID
	entry.ThumbKind = att.Kind
	if err := i.store.CreateAnime(ctx, &entry); err != nil {
		return IntakeResult{}, true, err
	}

	if att.Kind == model.MediaVideo {
		episode := &model.Episode{
			AnimeID: entry.ID,
			Number:  1,
			FileID:  att.FileID,
			Kind:    model.MediaVideo,
		}
		if err := i.store.UpsertEpisode(ctx, episode); err != nil {
			return IntakeResult{}, true, err
		}
	}

	// a Start racing the commit installs a fresh session; only the
	// committing one may be discarded
	i.mu.Lock()
	if i.sessions[userID] == s {
		delete(i.sessions, userID)
	}
	i.mu.Unlock()

	return IntakeResult{Done: true, Created: &entry}, true, nil
}
