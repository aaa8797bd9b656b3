// Package users lists, searches and updates marketplace accounts.
package users

import (
	"context"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/tres-passos/marketplace/internal/model"
	"github.com/tres-passos/marketplace/internal/store"
)

// ErrEmptyUpdate is returned by UpdateProfile when no field is set.
var ErrEmptyUpdate = eris.New("users: empty profile update")

const emailLookupConcurrency = 8

// Service serves the admin user listing and profile edits.
type Service struct {
	store store.UserStore
}

// New returns a Service backed by st.
func New(st store.UserStore) *Service {
	return &Service{store: st}
}

// List returns every profile, newest first, with its email. The user id
// stands in for the email when the lookup fails or finds nothing. A failure
// to list profiles yields an empty slice.
func (s *Service) List(ctx context.Context) []model.UserListItem {
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		zap.L().Error("users: list profiles", zap.Error(err))
		return []model.UserListItem{}
	}

	items := make([]model.UserListItem, len(profiles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(emailLookupConcurrency)
	for i, p := range profiles {
		items[i] = model.UserListItem{ID: p.ID, Email: p.ID, Name: p.Name, Role: p.Role}
		g.Go(func() error {
			email, err := s.store.GetUserEmail(gctx, p.ID)
			if err != nil {
				zap.L().Warn("users: email lookup", zap.String("user_id", p.ID), zap.Error(err))
				return nil
			}
			if email != "" {
				items[i].Email = email
			}
			return nil
		})
	}
	_ = g.Wait()
	return items
}

// UpdateProfile changes the fields set in update.
func (s *Service) UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) error {
	if update.Empty() {
		return ErrEmptyUpdate
	}
	if err := s.store.UpdateProfile(ctx, userID, update); err != nil {
		return eris.Wrapf(err, "users: update profile %s", userID)
	}
	zap.L().Info("users: profile updated", zap.String("user_id", userID))
	return nil
}

// Filter keeps the users whose name, email or role contains term, ignoring
// case and accents. An empty term keeps everyone.
func Filter(users []model.UserListItem, term string) []model.UserListItem {
	needle := fold(strings.TrimSpace(term))
	if needle == "" {
		return users
	}
	out := make([]model.UserListItem, 0, len(users))
	for _, u := range users {
		for _, field := range []string{u.Name, u.Email, string(u.Role), u.Role.Label()} {
			if strings.Contains(fold(field), needle) {
				out = append(out, u)
				break
			}
		}
	}
	return out
}

// fold strips combining marks and case-folds s, so "JOSÉ" and "jose" compare
// equal.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}

// Initials returns the avatar fallback for a user: the first letter of up
// to two name parts, or the first two characters of the email.
func Initials(name, email string) string {
	upper := cases.Upper(language.BrazilianPortuguese)

	if parts := strings.Fields(name); len(parts) > 0 {
		var b strings.Builder
		for _, p := range parts[:min(2, len(parts))] {
			b.WriteRune([]rune(p)[0])
		}
		return upper.String(b.String())
	}

	r := []rune(strings.TrimSpace(email))
	return upper.String(string(r[:min(2, len(r))]))
}
