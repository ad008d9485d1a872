package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nautilusim/nautilus/internal/models"
	"github.com/nautilusim/nautilus/internal/util/timefmt"
)

// Offline messages live as one JSON file per message under
// <storageRoot>/oim/<recipient uuid>/<oim uuid>. The format is stable:
// other tools poke at these files directly.

type oimFile struct {
	UUID         string             `json:"uuid"`
	RunID        string             `json:"run_id"`
	From         string             `json:"from"`
	FromFriendly models.OIMFriendly `json:"from_friendly"`
	FromUserID   string             `json:"from_user_id"`
	IsRead       bool               `json:"is_read"`
	Sent         string             `json:"sent"`
	OriginIP     string             `json:"origin_ip"`
	Proxy        string             `json:"proxy"`
	Headers      map[string]string  `json:"headers"`
	Message      oimMessage         `json:"message"`
}

type oimMessage struct {
	Text string `json:"text"`
	UTF8 bool   `json:"utf8"`
}

func (s *Store) oimDir(recipientUUID string) string {
	return filepath.Join(s.storageRoot, "oim", recipientUUID)
}

// SaveOIM writes an offline message for its recipient. The write is
// atomic: a temp file renamed into place.
func (s *Store) SaveOIM(oim *models.OIM) error {
	dir := s.oimDir(oim.To)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create oim dir: %w", err)
	}
	data, err := json.MarshalIndent(oimFile{
		UUID:         oim.UUID,
		RunID:        oim.RunID,
		From:         oim.From,
		FromFriendly: oim.FromFriendly,
		FromUserID:   oim.FromUserID,
		IsRead:       oim.IsRead,
		Sent:         timefmt.Format(oim.Sent),
		OriginIP:     oim.OriginIP,
		Proxy:        oim.Proxy,
		Headers:      oim.Headers,
		Message:      oimMessage{Text: oim.Text, UTF8: oim.UTF8},
	}, "", "\t")
	if err != nil {
		return fmt.Errorf("encode oim %s: %w", oim.UUID, err)
	}

	tmp, err := os.CreateTemp(dir, ".oim-*")
	if err != nil {
		return fmt.Errorf("create oim temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write oim %s: %w", oim.UUID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close oim %s: %w", oim.UUID, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, oim.UUID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store oim %s: %w", oim.UUID, err)
	}
	return nil
}

// GetOIMSingle loads one offline message, optionally marking it read.
// A missing message is (nil, nil).
func (s *Store) GetOIMSingle(recipientUUID, oimUUID string, markRead bool) (*models.OIM, error) {
	path := filepath.Join(s.oimDir(recipientUUID), oimUUID)
	oim, err := s.readOIM(path, recipientUUID)
	if err != nil || oim == nil {
		return nil, err
	}
	if markRead && !oim.IsRead {
		oim.IsRead = true
		if err := s.SaveOIM(oim); err != nil {
			return nil, err
		}
	}
	return oim, nil
}

// GetOIMBatch loads every stored offline message for a recipient.
func (s *Store) GetOIMBatch(recipientUUID string) ([]*models.OIM, error) {
	entries, err := os.ReadDir(s.oimDir(recipientUUID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list oims: %w", err)
	}
	var oims []*models.OIM
	for _, entry := range entries {
		if entry.IsDir() || entry.Name()[0] == '.' {
			continue
		}
		oim, err := s.readOIM(filepath.Join(s.oimDir(recipientUUID), entry.Name()), recipientUUID)
		if err != nil {
			return nil, err
		}
		if oim != nil {
			oims = append(oims, oim)
		}
	}
	return oims, nil
}

// DeleteOIM removes one offline message. Deleting a missing message is
// a no-op.
func (s *Store) DeleteOIM(recipientUUID, oimUUID string) error {
	err := os.Remove(filepath.Join(s.oimDir(recipientUUID), oimUUID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *Store) readOIM(path, recipientUUID string) (*models.OIM, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read oim: %w", err)
	}
	var f oimFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode oim %s: %w", filepath.Base(path), err)
	}
	return &models.OIM{
		UUID:         f.UUID,
		RunID:        f.RunID,
		From:         f.From,
		FromFriendly: f.FromFriendly,
		FromUserID:   f.FromUserID,
		To:           recipientUUID,
		IsRead:       f.IsRead,
		Sent:         timefmt.Parse(f.Sent),
		OriginIP:     f.OriginIP,
		Proxy:        f.Proxy,
		Headers:      f.Headers,
		Text:         f.Message.Text,
		UTF8:         f.Message.UTF8,
	}, nil
}
