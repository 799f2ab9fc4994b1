package main

import (
	"os/exec"
	"sync"

	"github.com/rs/zerolog/log"
)

// commandSpeaker reads text aloud through a system speech synthesizer.
type commandSpeaker struct {
	mu   sync.Mutex
	path string
	cmd  *exec.Cmd
}

// newSpeaker returns nil when no synthesizer is installed.
func newSpeaker() *commandSpeaker {
	for _, name := range []string{"say", "espeak-ng", "espeak", "spd-say"} {
		if path, err := exec.LookPath(name); err == nil {
			return &commandSpeaker{path: path}
		}
	}
	return nil
}

func (s *commandSpeaker) Speak(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	cmd := exec.Command(s.path, speechArgs(text)...)
	if err := cmd.Start(); err != nil {
		log.Warn().Err(err).Str("synthesizer", s.path).Msg("Failed to start speech")
		return
	}
	s.cmd = cmd
	go cmd.Wait()
}

// speechArgs ends option parsing so replies starting with '-' are spoken, not
// read as synthesizer flags.
func speechArgs(text string) []string {
	return []string{"--", text}
}

func (s *commandSpeaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *commandSpeaker) stopLocked() {
	if s.cmd == nil || s.cmd.Process == nil {
		return
	}
	// Fails harmlessly when playback already ended.
	_ = s.cmd.Process.Kill()
	s.cmd = nil
}
