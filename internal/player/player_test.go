package player

import (
	"errors"
	"testing"
)

type fakeSettings struct {
	urls map[string]string
	err  error
}

func (f *fakeSettings) MusicURL(userID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.urls[userID], nil
}

func (f *fakeSettings) SetMusicURL(userID, rawURL string) error {
	if f.err != nil {
		return f.err
	}
	if f.urls == nil {
		f.urls = map[string]string{}
	}
	f.urls[userID] = rawURL
	return nil
}

func TestPlayer_FallbackWhenUnset(t *testing.T) {
	p := New(&fakeSettings{}, "")
	if got := p.URLFor("user_a"); got != DefaultPlaylistURL {
		t.Fatalf("URLFor=%q, want default playlist", got)
	}
}

func TestPlayer_FallbackWhenStoreFails(t *testing.T) {
	p := New(&fakeSettings{err: errors.New("boom")}, "https://example.com/lofi")
	if got := p.URLFor("user_a"); got != "https://example.com/lofi" {
		t.Fatalf("URLFor=%q, want configured fallback", got)
	}
}

func TestPlayer_SetAndResolve(t *testing.T) {
	settings := &fakeSettings{}
	p := New(settings, "")

	if err := p.SetURL("user_a", "  https://example.com/stream  "); err != nil {
		t.Fatalf("SetURL: %v", err)
	}
	if got := p.URLFor("user_a"); got != "https://example.com/stream" {
		t.Fatalf("URLFor=%q", got)
	}

	// Clearing restores the default.
	if err := p.SetURL("user_a", ""); err != nil {
		t.Fatalf("SetURL clear: %v", err)
	}
	if got := p.URLFor("user_a"); got != DefaultPlaylistURL {
		t.Fatalf("URLFor after clear=%q", got)
	}
}

func TestPlayer_RejectsInvalidURL(t *testing.T) {
	p := New(&fakeSettings{}, "")
	for _, raw := range []string{"not a url", "ftp://example.com/x", "https://", "//host/path"} {
		if err := p.SetURL("user_a", raw); err == nil {
			t.Fatalf("SetURL(%q) should fail", raw)
		}
	}
}

func TestPlayer_FallbackWhenPersistedValueInvalid(t *testing.T) {
	settings := &fakeSettings{urls: map[string]string{"user_a": "garbage"}}
	p := New(settings, "")
	if got := p.URLFor("user_a"); got != DefaultPlaylistURL {
		t.Fatalf("URLFor=%q, want default for invalid persisted value", got)
	}
}
