package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeDict(t *testing.T, name string, keys ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(strings.Join(keys, "\n")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newSession(t *testing.T) *Session {
	t.Helper()
	s := New(nil)
	t.Cleanup(s.Close)
	return s
}

func TestStaticFacade(t *testing.T) {
	s := newSession(t)
	if err := s.LoadUnigram(writeDict(t, "uni.txt", "алма", "алмас", "сәлем")); err != nil {
		t.Fatal(err)
	}
	if err := s.LoadBigram(writeDict(t, "bi.txt", "сіз қалай", "сіз қайда")); err != nil {
		t.Fatal(err)
	}

	if !s.IsUnigramLoaded() || !s.IsBigramLoaded() {
		t.Fatal("tries not loaded")
	}
	if !s.ExactMatch("алма") {
		t.Error("exact match failed")
	}
	if got := s.PrefixSearch("ал", 0); len(got) != 2 {
		t.Errorf("PrefixSearch = %v", got)
	}
	if got := s.ContextPredict("сіз", "қа", 0); len(got) != 2 {
		t.Errorf("ContextPredict = %v", got)
	}
	if got := s.SpellCorrect("салем", 0); len(got) == 0 || got[0] != "сәлем" {
		t.Errorf("SpellCorrect = %v", got)
	}
	if got := s.SmartPredict("алма", 0); len(got) != 1 || got[0] != "алма" {
		t.Errorf("SmartPredict = %v", got)
	}
	if info := s.Info(); !strings.Contains(info, "unigram loaded: true") {
		t.Errorf("info = %q", info)
	}
}

func TestUserFacade(t *testing.T) {
	s := newSession(t)

	if !s.UserAdd("қотақба", 0) {
		t.Fatal("UserAdd failed")
	}
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if got := s.UserSearchPrefix("қот", 0); len(got) == 1 && got[0] == "қотақба" {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := s.UserSearchPrefix("қот", 0); len(got) != 1 {
		t.Errorf("UserSearchPrefix = %v", got)
	}
	if !s.UserContains("ҚОТАҚБА") {
		t.Error("UserContains failed")
	}
	if s.UserStats() == "" {
		t.Error("empty stats")
	}
}

func TestUserPersistenceAcrossSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.dict")

	s := New(nil)
	s.UserAdd("сөздік", 2)
	if err := s.UserSave(path); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s2 := newSession(t)
	if err := s2.UserLoad(path); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && !s2.UserContains("сөздік") {
		time.Sleep(5 * time.Millisecond)
	}
	if !s2.UserContains("сөздік") {
		t.Error("word lost across sessions")
	}
}

func TestCloseIsIdempotentEnough(t *testing.T) {
	s := New(nil)
	s.Close()
	s.Close()
}
