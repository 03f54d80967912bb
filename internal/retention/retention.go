package retention

import (
	"log"
	"sync"
	"time"

	"github.com/ImHoppy/excalidraw/internal/store"
)

type Config struct {
	Interval time.Duration
	MaxIdle  time.Duration
}

// DefaultConfig sweeps hourly but deletes nothing: retention is opt-in.
func DefaultConfig() Config {
	return Config{
		Interval: time.Hour,
		MaxIdle:  0,
	}
}

// Service periodically deletes scene snapshots that have not been written
// for longer than MaxIdle. A MaxIdle of zero disables deletion entirely.
type Service struct {
	store  *store.Store
	config Config
	stop   chan struct{}
	wg     sync.WaitGroup
}

func New(sceneStore *store.Store, config Config) *Service {
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	return &Service{
		store:  sceneStore,
		config: config,
		stop:   make(chan struct{}),
	}
}

func (s *Service) Start() {
	s.wg.Add(1)
	go s.run()
	log.Printf("Retention service started (interval: %v, max idle: %v)",
		s.config.Interval, s.config.MaxIdle)
}

func (s *Service) Stop() {
	close(s.stop)
	s.wg.Wait()
	log.Println("Retention service stopped")
}

func (s *Service) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Service) sweep() {
	if s.config.MaxIdle <= 0 {
		return
	}

	scenes, err := s.store.ListScenes()
	if err != nil {
		log.Printf("Retention: failed to list scenes: %v", err)
		return
	}

	cutoff := time.Now().Add(-s.config.MaxIdle)
	sweptCount := 0
	for _, summary := range scenes {
		if !summary.UpdatedAt.Before(cutoff) {
			continue
		}
		if _, err := s.store.DeleteScene(summary.ID); err != nil {
			log.Printf("Retention: failed to delete scene %s: %v", summary.ID, err)
			continue
		}
		sweptCount++
	}

	if sweptCount > 0 {
		log.Printf("Retention: swept %d idle scenes", sweptCount)
	}
}

// SweepNow runs one sweep outside the ticker schedule.
func (s *Service) SweepNow() {
	s.sweep()
}
