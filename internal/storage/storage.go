// /internal/storage/storage.go
package storage

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"guild-music/datastore"
)

const commandHistoryLimit = 20

// Storage persists per-guild settings. Sessions themselves stay in memory.
type Storage struct {
	mu sync.Mutex
	ds *datastore.DataStore
}

type CommandRecord struct {
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Command   string    `json:"command"`
	Param     string    `json:"param,omitempty"`
	Datetime  time.Time `json:"datetime"`
}

type Record struct {
	Volume          int             `json:"volume,omitempty"`
	CommandsHistory []CommandRecord `json:"cmd_history"`
}

func New(filePath string) (*Storage, error) {
	ds, err := datastore.New(filePath)
	if err != nil {
		return nil, err
	}
	return &Storage{ds: ds}, nil
}

func NewWithConfig(cfg *datastore.Config) (*Storage, error) {
	ds, err := datastore.NewWithConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &Storage{ds: ds}, nil
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

// record returns the guild record. Records loaded from disk are generic JSON
// and are converted through a JSON round trip.
func (s *Storage) record(guildID string) (*Record, error) {
	data, ok := s.ds.Get(guildID)
	if !ok {
		return &Record{CommandsHistory: []CommandRecord{}}, nil
	}
	if r, ok := data.(*Record); ok {
		cp := *r
		cp.CommandsHistory = append([]CommandRecord(nil), r.CommandsHistory...)
		return &cp, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("error marshalling data: %w", err)
	}
	var r Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("error unmarshalling to *Record: %w", err)
	}
	return &r, nil
}

func (s *Storage) update(guildID string, fn func(r *Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.record(guildID)
	if err != nil {
		return err
	}
	fn(r)
	return s.ds.Add(guildID, r)
}

// Volume returns the stored volume of a guild, or 0 when none is set.
func (s *Storage) Volume(guildID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.record(guildID)
	if err != nil {
		return 0
	}
	return r.Volume
}

func (s *Storage) SetVolume(guildID string, volume int) error {
	return s.update(guildID, func(r *Record) {
		r.Volume = volume
	})
}

// AppendCommand records a command, keeping only the most recent ones.
func (s *Storage) AppendCommand(guildID string, rec CommandRecord) error {
	return s.update(guildID, func(r *Record) {
		r.CommandsHistory = append(r.CommandsHistory, rec)
		if len(r.CommandsHistory) > commandHistoryLimit {
			r.CommandsHistory = r.CommandsHistory[len(r.CommandsHistory)-commandHistoryLimit:]
		}
	})
}

func (s *Storage) CommandHistory(guildID string) ([]CommandRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.record(guildID)
	if err != nil {
		return nil, err
	}
	return r.CommandsHistory, nil
}
