package bot

import (
	"context"
	"testing"

	"github.com/user/anime-bot-go/internal/model"
)

type fakeCatalog struct {
	anime    []*model.Anime
	episodes []*model.Episode
	nextID   uint
}

func (f *fakeCatalog) CreateAnime(_ context.Context, anime *model.Anime) error {
	f.nextID++
	anime.ID = f.nextID
	stored := *anime
	f.anime = append(f.anime, &stored)
	return nil
}

func (f *fakeCatalog) UpsertEpisode(_ context.Context, episode *model.Episode) error {
	stored := *episode
	f.episodes = append(f.episodes, &stored)
	return nil
}

func feedFields(t *testing.T, intake *Intake, userID int64, fields []string) {
	t.Helper()
	for _, text := range fields {
		res, ok := intake.AdvanceText(userID, text)
		if !ok {
			t.Fatalf("AdvanceText(%q): no active session", text)
		}
		if res.Done {
			t.Fatalf("AdvanceText(%q): dialogue finished before the media step", text)
		}
	}
}

var sampleFields = []string{"Naruto", "220", "Japan", "Japanese", "2002", "Action, Adventure", "TV Series"}

func TestIntake_FullDialogueWithVideo(t *testing.T) {
	catalog := &fakeCatalog{}
	intake := NewIntake(catalog)

	prompt := intake.Start(100)
	if prompt != intakePrompts[stepTitle] {
		t.Fatalf("Start prompt = %q, want title prompt", prompt)
	}

	feedFields(t, intake, 100, sampleFields)

	res, ok, err := intake.AdvanceMedia(context.Background(), 100, Attachment{
		FileID:   "vid-1",
		Kind:     model.MediaVideo,
		Duration: 45,
	})
	if err != nil || !ok {
		t.Fatalf("AdvanceMedia: ok=%v err=%v", ok, err)
	}
	if !res.Done || res.Created == nil {
		t.Fatal("dialogue should finish on an accepted video")
	}

	if len(catalog.anime) != 1 {
		t.Fatalf("created %d entries, want 1", len(catalog.anime))
	}
	got := catalog.anime[0]
	if got.Title != "Naruto" || got.EpisodesCount != "220" || got.Country != "Japan" ||
		got.Language != "Japanese" || got.Year != "2002" ||
		got.Genres != "Action, Adventure" || got.TypeLabel != "TV Series" {
		t.Errorf("stored fields mismatch: %+v", got)
	}
	if got.ThumbnailID != "vid-1" || got.ThumbKind != model.MediaVideo {
		t.Errorf("thumbnail = %q/%q, want vid-1/video", got.ThumbnailID, got.ThumbKind)
	}

	if len(catalog.episodes) != 1 {
		t.Fatalf("created %d episodes, want 1", len(catalog.episodes))
	}
	ep := catalog.episodes[0]
	if ep.AnimeID != got.ID || ep.Number != 1 || ep.FileID != "vid-1" {
		t.Errorf("episode = %+v, want number 1 of entry %d", ep, got.ID)
	}

	if intake.Active(100) {
		t.Error("session should be discarded after commit")
	}
}

func TestIntake_PhotoCreatesNoEpisode(t *testing.T) {
	catalog := &fakeCatalog{}
	intake := NewIntake(catalog)

	intake.Start(100)
	feedFields(t, intake, 100, sampleFields)

	res, _, err := intake.AdvanceMedia(context.Background(), 100, Attachment{
		FileID: "photo-1",
		Kind:   model.MediaPhoto,
	})
	if err != nil || !res.Done {
		t.Fatalf("photo should finish the dialogue: done=%v err=%v", res.Done, err)
	}
	if len(catalog.anime) != 1 || len(catalog.episodes) != 0 {
		t.Errorf("anime=%d episodes=%d, want 1 and 0", len(catalog.anime), len(catalog.episodes))
	}
}

func TestIntake_LongVideoRePrompts(t *testing.T) {
	catalog := &fakeCatalog{}
	intake := NewIntake(catalog)

	intake.Start(100)
	feedFields(t, intake, 100, sampleFields)

	res, ok, err := intake.AdvanceMedia(context.Background(), 100, Attachment{
		FileID:   "vid-long",
		Kind:     model.MediaVideo,
		Duration: 75,
	})
	if err != nil || !ok {
		t.Fatalf("AdvanceMedia: ok=%v err=%v", ok, err)
	}
	if res.Done || res.Prompt != invalidAttachmentPrompt {
		t.Errorf("long video should re-prompt, got %+v", res)
	}
	if len(catalog.anime) != 0 {
		t.Errorf("created %d entries, want none", len(catalog.anime))
	}
	if !intake.Active(100) {
		t.Error("session should survive a rejected attachment")
	}
}

func TestIntake_EmptyTextRePrompts(t *testing.T) {
	intake := NewIntake(&fakeCatalog{})
	intake.Start(100)

	res, ok := intake.AdvanceText(100, "   ")
	if !ok {
		t.Fatal("session should be active")
	}
	if res.Prompt != intakePrompts[stepTitle] {
		t.Errorf("blank input prompt = %q, want the same step again", res.Prompt)
	}

	// the step must not have advanced
	res, _ = intake.AdvanceText(100, "Naruto")
	if res.Prompt != intakePrompts[stepEpisodeCount] {
		t.Errorf("after valid title, prompt = %q, want episode count", res.Prompt)
	}
}

func TestIntake_TextAtMediaStepRejected(t *testing.T) {
	intake := NewIntake(&fakeCatalog{})
	intake.Start(100)
	feedFields(t, intake, 100, sampleFields)

	res, ok := intake.AdvanceText(100, "not a file")
	if !ok || res.Prompt != invalidAttachmentPrompt {
		t.Errorf("text at the media step should re-prompt for media, got %+v", res)
	}
}

func TestIntake_MediaBeforeTerminalStepRejected(t *testing.T) {
	intake := NewIntake(&fakeCatalog{})
	intake.Start(100)

	res, ok, err := intake.AdvanceMedia(context.Background(), 100, Attachment{
		FileID: "early", Kind: model.MediaPhoto,
	})
	if err != nil || !ok {
		t.Fatalf("AdvanceMedia: ok=%v err=%v", ok, err)
	}
	if res.Done || res.Prompt != intakePrompts[stepTitle] {
		t.Errorf("early media should re-prompt the current step, got %+v", res)
	}
}

func TestIntake_RestartOverwritesAccumulator(t *testing.T) {
	catalog := &fakeCatalog{}
	intake := NewIntake(catalog)

	intake.Start(100)
	intake.AdvanceText(100, "Half Finished")
	intake.AdvanceText(100, "12")

	intake.Start(100)
	feedFields(t, intake, 100, sampleFields)
	res, _, err := intake.AdvanceMedia(context.Background(), 100, Attachment{
		FileID: "photo-1", Kind: model.MediaPhoto,
	})
	if err != nil || !res.Done {
		t.Fatalf("restarted dialogue should finish: %+v err=%v", res, err)
	}
	if catalog.anime[0].Title != "Naruto" {
		t.Errorf("title = %q, want the restarted value", catalog.anime[0].Title)
	}
}

// restartingCatalog begins a new dialogue for the same user while the
// previous one is being committed
type restartingCatalog struct {
	fakeCatalog
	intake *Intake
	userID int64
}

func (c *restartingCatalog) CreateAnime(ctx context.Context, anime *model.Anime) error {
	if err := c.fakeCatalog.CreateAnime(ctx, anime); err != nil {
		return err
	}
	c.intake.Start(c.userID)
	return nil
}

func TestIntake_RestartDuringCommitSurvives(t *testing.T) {
	catalog := &restartingCatalog{userID: 100}
	intake := NewIntake(catalog)
	catalog.intake = intake

	intake.Start(100)
	feedFields(t, intake, 100, sampleFields)

	res, _, err := intake.AdvanceMedia(context.Background(), 100, Attachment{
		FileID: "photo-1", Kind: model.MediaPhoto,
	})
	if err != nil || !res.Done {
		t.Fatalf("commit should finish: %+v err=%v", res, err)
	}

	if !intake.Active(100) {
		t.Fatal("the dialogue restarted during commit must stay active")
	}
	got, ok := intake.AdvanceText(100, "Second Title")
	if !ok || got.Prompt != intakePrompts[stepEpisodeCount] {
		t.Errorf("restarted dialogue should accept a title, got %+v", got)
	}
}

func TestIntake_SessionsIsolatedPerUser(t *testing.T) {
	catalog := &fakeCatalog{}
	intake := NewIntake(catalog)

	intake.Start(1)
	intake.Start(2)

	intake.AdvanceText(1, "Alpha")
	intake.AdvanceText(2, "Beta")

	feedFields(t, intake, 1, sampleFields[1:])
	feedFields(t, intake, 2, sampleFields[1:])

	for _, id := range []int64{1, 2} {
		if _, _, err := intake.AdvanceMedia(context.Background(), id, Attachment{
			FileID: "p", Kind: model.MediaPhoto,
		}); err != nil {
			t.Fatalf("user %d commit: %v", id, err)
		}
	}

	if len(catalog.anime) != 2 {
		t.Fatalf("created %d entries, want 2", len(catalog.anime))
	}
	titles := map[string]bool{catalog.anime[0].Title: true, catalog.anime[1].Title: true}
	if !titles["Alpha"] || !titles["Beta"] {
		t.Errorf("titles = %v, want Alpha and Beta", titles)
	}
}

func TestIntake_NoSession(t *testing.T) {
	intake := NewIntake(&fakeCatalog{})

	if _, ok := intake.AdvanceText(99, "hello"); ok {
		t.Error("text without a session should not be consumed")
	}
	if _, ok, _ := intake.AdvanceMedia(context.Background(), 99, Attachment{Kind: model.MediaPhoto}); ok {
		t.Error("media without a session should not be consumed")
	}
	if intake.Active(99) {
		t.Error("Active should be false without a session")
	}

	intake.Start(99)
	intake.Cancel(99)
	if intake.Active(99) {
		t.Error("Cancel should discard the session")
	}
}
