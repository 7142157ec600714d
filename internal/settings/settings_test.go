package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/storybook/pkg/models"
)

type memStore struct {
	stored  *models.Settings
	loadErr error
	saveErr error
	saves   int
}

func (m *memStore) LoadSettings(context.Context) (models.Settings, bool, error) {
	if m.loadErr != nil {
		return models.Settings{}, false, m.loadErr
	}
	if m.stored == nil {
		return models.Settings{}, false, nil
	}
	return *m.stored, true, nil
}

func (m *memStore) SaveSettings(_ context.Context, s models.Settings) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.stored = &s
	return nil
}

func TestNew_Defaults(t *testing.T) {
	svc := New(context.Background(), &memStore{}, nil)
	assert.Equal(t, models.DefaultSettings(), svc.Get())
	assert.Equal(t, models.ThemeSystem, svc.Get().Theme)
	assert.Equal(t, models.ReadingModeSelfRead, svc.Get().ReadingMode)
}

func TestNew_LoadsStored(t *testing.T) {
	stored := models.Settings{Theme: models.ThemeLight, ReadingMode: models.ReadingModeNarrated}
	svc := New(context.Background(), &memStore{stored: &stored}, nil)
	assert.Equal(t, stored, svc.Get())
}

func TestNew_LoadFailureUsesDefaults(t *testing.T) {
	svc := New(context.Background(), &memStore{loadErr: errors.New("locked")}, nil)
	assert.Equal(t, models.DefaultSettings(), svc.Get())
}

func TestUpdate_PersistsAndNotifies(t *testing.T) {
	store := &memStore{}
	svc := New(context.Background(), store, nil)

	var seen []models.Settings
	unsubscribe := svc.Subscribe(func(s models.Settings) { seen = append(seen, s) })

	svc.SetTheme(models.ThemeDark)
	got := svc.ToggleReadingMode()

	assert.Equal(t, models.ReadingModeNarrated, got.ReadingMode)
	require.NotNil(t, store.stored)
	assert.Equal(t, got, *store.stored)
	require.Len(t, seen, 2)
	assert.Equal(t, models.ThemeDark, seen[0].Theme)

	unsubscribe()
	svc.ToggleReadingMode()
	assert.Len(t, seen, 2)
	assert.Equal(t, models.ReadingModeSelfRead, store.stored.ReadingMode)
}

func TestUpdate_NoChangeSkipsSave(t *testing.T) {
	store := &memStore{}
	svc := New(context.Background(), store, nil)

	svc.SetReadingMode(models.ReadingModeSelfRead)
	assert.Zero(t, store.saves)
}

func TestUpdate_SaveFailureKeepsSessionValue(t *testing.T) {
	store := &memStore{saveErr: errors.New("read-only")}
	svc := New(context.Background(), store, nil)

	svc.SetReadingMode(models.ReadingModeNarrated)
	assert.Equal(t, models.ReadingModeNarrated, svc.Get().ReadingMode)
	assert.Equal(t, 1, store.saves)
}
