package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dalemusser/vlsiclub/internal/app/identity"
	"github.com/dalemusser/vlsiclub/internal/app/session"
	"github.com/dalemusser/vlsiclub/internal/domain/models"
	"github.com/dalemusser/vlsiclub/internal/testutil/memstores"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

type fixture struct {
	provider *identity.Local
	profiles *memstores.Profiles
	ctrl     *session.Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{profiles: memstores.NewProfiles()}
	f.provider = identity.NewLocal(memstores.NewAccounts(), memstores.NewSessions(), memstores.NewTokens(),
		&memstores.Mailer{}, identity.LocalConfig{Domain: "iiitdwd.ac.in"}, zap.NewNop())
	f.ctrl = session.New(f.provider, f.profiles, zap.NewNop())
	f.ctrl.Start(context.Background())
	t.Cleanup(f.ctrl.Close)
	return f
}

func strptr(s string) *string { return &s }

func TestController_LoadingBeforeStart(t *testing.T) {
	ctrl := session.New(nil, memstores.NewProfiles(), zap.NewNop())
	if v := ctrl.Current(context.Background(), "tok"); v.State != session.StateLoading {
		t.Errorf("expected loading before Start, got %s", v.State)
	}
}

func TestController_ExactlyOneCreationWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.provider.SignUp(ctx, "ada.l@iiitdwd.ac.in", "circuit42", "")
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if f.profiles.Creates != 1 {
		t.Fatalf("expected 1 creation write, got %d", f.profiles.Creates)
	}

	// the same session emitted again
	if _, err := f.provider.Resume(ctx, s.Token); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if f.profiles.Creates != 1 {
		t.Errorf("expected no additional creation writes, got %d", f.profiles.Creates)
	}

	v := f.ctrl.Current(ctx, s.Token)
	if v.State != session.StateAuthenticated {
		t.Fatalf("expected authenticated, got %s", v.State)
	}
	want := &models.Profile{
		AccountID: s.AccountID,
		Email:     "ada.l@iiitdwd.ac.in",
		Name:      "ada.l",
		Role:      "client",
		Interests: []string{},
	}
	if diff := cmp.Diff(want, v.Profile, ignoreTimes()); diff != "" {
		t.Errorf("default profile mismatch (-want +got):\n%s", diff)
	}
}

func TestController_SecondSessionSameAccountNoCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _ = f.provider.SignUp(ctx, "bo@iiitdwd.ac.in", "circuit42", "Bo")
	if _, err := f.provider.SignInWithPassword(ctx, "bo@iiitdwd.ac.in", "circuit42"); err != nil {
		t.Fatalf("SignInWithPassword failed: %v", err)
	}
	if f.profiles.Creates != 1 {
		t.Errorf("expected 1 creation write across sessions, got %d", f.profiles.Creates)
	}
}

func TestController_SignOutDiscards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, _ := f.provider.SignUp(ctx, "cy@iiitdwd.ac.in", "circuit42", "Cy")

	if err := f.ctrl.Logout(ctx, s.Token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if v := f.ctrl.Current(ctx, s.Token); v.State != session.StateUnauthenticated {
		t.Errorf("expected unauthenticated after logout, got %s", v.State)
	}
}

func TestController_UpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, _ := f.provider.SignUp(ctx, "di@iiitdwd.ac.in", "circuit42", "Di")

	interests := []string{"VLSI", "FPGA"}
	v, err := f.ctrl.UpdateProfile(ctx, s.Token, models.ProfileUpdate{
		Bio:       strptr("likes adders"),
		Interests: &interests,
	})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if f.profiles.Merges != 1 {
		t.Errorf("expected 1 merge write, got %d", f.profiles.Merges)
	}
	if v.Profile.Bio != "likes adders" || v.Profile.Name != "Di" {
		t.Errorf("expected merged profile, got %+v", v.Profile)
	}

	stored, _ := f.profiles.Get(ctx, s.AccountID)
	if diff := cmp.Diff(interests, stored.Interests); diff != "" {
		t.Errorf("stored interests mismatch (-want +got):\n%s", diff)
	}
	if stored.Role != "client" {
		t.Errorf("expected role untouched, got %q", stored.Role)
	}
}

func TestController_UpdateProfileUnauthenticatedIsNoop(t *testing.T) {
	f := newFixture(t)
	v, err := f.ctrl.UpdateProfile(context.Background(), "unknown-token", models.ProfileUpdate{Bio: strptr("x")})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if v.State != session.StateUnauthenticated {
		t.Errorf("expected unauthenticated, got %s", v.State)
	}
	if f.profiles.Merges != 0 {
		t.Errorf("expected no store writes, got %d", f.profiles.Merges)
	}
}

func TestController_StoreFailureStaysLoading(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.profiles.Err = errors.New("store down")

	s, _ := f.provider.SignUp(ctx, "ed@iiitdwd.ac.in", "circuit42", "Ed")
	if v := f.ctrl.Current(ctx, s.Token); v.State != session.StateLoading {
		t.Fatalf("expected loading while the store is down, got %s", v.State)
	}
	v, err := f.ctrl.UpdateProfile(ctx, s.Token, models.ProfileUpdate{Bio: strptr("x")})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if v.State != session.StateLoading || f.profiles.Merges != 0 {
		t.Errorf("expected no write while loading, got state %s and %d merges", v.State, f.profiles.Merges)
	}

	// the store recovers and the next read loads the profile
	f.profiles.Err = nil
	v = f.ctrl.Current(ctx, s.Token)
	if v.State != session.StateAuthenticated {
		t.Fatalf("expected authenticated after recovery, got %s", v.State)
	}
	if !v.Persisted || v.Profile.Name != "Ed" {
		t.Errorf("expected the created default profile, got persisted=%v %+v", v.Persisted, v.Profile)
	}
	if f.profiles.Creates != 1 {
		t.Errorf("expected 1 creation write, got %d", f.profiles.Creates)
	}
}

func TestController_TransientGetKeepsStoredProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, _ := f.provider.SignUp(ctx, "ada.l@iiitdwd.ac.in", "circuit42", "")
	f.profiles.Put(&models.Profile{
		AccountID: s.AccountID,
		Email:     "ada.l@iiitdwd.ac.in",
		Name:      "Ada L.",
		Role:      "admin",
		Interests: []string{},
	})
	if err := f.ctrl.Logout(ctx, s.Token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	f.profiles.FailGets = 1
	s, err := f.provider.SignInWithPassword(ctx, "ada.l@iiitdwd.ac.in", "circuit42")
	if err != nil {
		t.Fatalf("SignInWithPassword failed: %v", err)
	}

	v, err := f.ctrl.UpdateProfile(ctx, s.Token, models.ProfileUpdate{Bio: strptr("timing closure")})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if v.State != session.StateAuthenticated {
		t.Fatalf("expected authenticated after the retried load, got %s", v.State)
	}
	if v.Profile.Name != "Ada L." || v.Profile.Role != "admin" {
		t.Errorf("expected stored name and role in view, got name=%q role=%q", v.Profile.Name, v.Profile.Role)
	}

	stored, _ := f.profiles.Get(ctx, s.AccountID)
	want := &models.Profile{
		AccountID: s.AccountID,
		Email:     "ada.l@iiitdwd.ac.in",
		Name:      "Ada L.",
		Role:      "admin",
		Bio:       "timing closure",
		Interests: []string{},
	}
	if diff := cmp.Diff(want, stored, ignoreTimes()); diff != "" {
		t.Errorf("stored profile mismatch (-want +got):\n%s", diff)
	}
}

func TestController_CreateFailureCarriesDefaults(t *testing.T) {
	ctx := context.Background()
	provider := identity.NewLocal(memstores.NewAccounts(), memstores.NewSessions(), memstores.NewTokens(),
		&memstores.Mailer{}, identity.LocalConfig{Domain: "iiitdwd.ac.in"}, zap.NewNop())
	docs := memstores.NewProfiles()
	ctrl := session.New(provider, &failingCreate{Profiles: docs}, zap.NewNop())
	ctrl.Start(ctx)
	t.Cleanup(ctrl.Close)

	s, _ := provider.SignUp(ctx, "fe@iiitdwd.ac.in", "circuit42", "Fe")
	v := ctrl.Current(ctx, s.Token)
	if v.State != session.StateAuthenticated || v.Persisted {
		t.Fatalf("expected authenticated and not persisted, got %s persisted=%v", v.State, v.Persisted)
	}

	if _, err := ctrl.UpdateProfile(ctx, s.Token, models.ProfileUpdate{Bio: strptr("x")}); err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	stored, err := docs.Get(ctx, s.AccountID)
	if err != nil {
		t.Fatalf("expected the merge to create the document: %v", err)
	}
	if stored.Name != "Fe" || stored.Email != "fe@iiitdwd.ac.in" {
		t.Errorf("expected defaults carried into the first write, got %+v", stored)
	}
}

// failingCreate rejects creates so the document stays absent.
type failingCreate struct {
	*memstores.Profiles
}

func (s *failingCreate) Create(context.Context, *models.Profile) error {
	return errors.New("create rejected")
}

func TestController_ResolveUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, _ := f.provider.SignUp(ctx, "fay@iiitdwd.ac.in", "circuit42", "Fay")

	u, ok := f.ctrl.ResolveUser(ctx, s.Token)
	if !ok {
		t.Fatal("expected user to resolve")
	}
	if u.ID != s.AccountID || u.Name != "Fay" || u.Role != "client" || u.Token != s.Token {
		t.Errorf("unexpected user: %+v", u)
	}
	if _, ok := f.ctrl.ResolveUser(ctx, ""); ok {
		t.Error("expected empty token not to resolve")
	}
}

func TestController_ResumesUnknownToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, _ := f.provider.SignUp(ctx, "gus@iiitdwd.ac.in", "circuit42", "")

	// a controller started after the sign-in, as after a restart
	fresh := session.New(f.provider, f.profiles, zap.NewNop())
	fresh.Start(ctx)
	defer fresh.Close()

	if v := fresh.Current(ctx, s.Token); v.State != session.StateAuthenticated {
		t.Errorf("expected resumed session to be authenticated, got %s", v.State)
	}
	if f.profiles.Creates != 1 {
		t.Errorf("expected existing profile to be reused, got %d creates", f.profiles.Creates)
	}
}

func TestController_ConcurrentResumes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, _ := f.provider.SignUp(ctx, "hal@iiitdwd.ac.in", "circuit42", "")

	store := memstores.NewProfiles()
	fresh := session.New(f.provider, store, zap.NewNop())
	fresh.Start(ctx)
	defer fresh.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = fresh.Current(ctx, s.Token)
		}()
	}
	wg.Wait()

	if v := fresh.Current(ctx, s.Token); v.State != session.StateAuthenticated {
		t.Errorf("expected authenticated, got %s", v.State)
	}
	if store.Creates != 1 {
		t.Errorf("expected exactly 1 creation write, got %d", store.Creates)
	}
}
