// Package daemon talks to the robot daemon over its local HTTP API. It is
// the only part of the program that knows how poses and audio commands are
// encoded on the wire; the countdown controller sees it through the
// Actuator and Announcer ports.
package daemon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	// LocalURL is the daemon endpoint when running on the robot itself.
	LocalURL = "http://127.0.0.1:8080"
	// WirelessURL is the default endpoint when the program runs on a
	// computer and the robot is on the network.
	WirelessURL = "http://reachy.local:8080"
)

type Client struct {
	base string
	http *http.Client
	log  zerolog.Logger
}

func NewClient(base string, log zerolog.Logger) *Client {
	return &Client{
		base: base,
		http: &http.Client{Timeout: 5 * time.Second},
		log:  log.With().Str("component", "daemon").Logger(),
	}
}

type headPose struct {
	Pitch    float64 `json:"pitch"`
	Yaw      float64 `json:"yaw"`
	Roll     float64 `json:"roll"`
	Duration float64 `json:"duration_s"`
}

type antennaPose struct {
	Left     float64 `json:"left"`
	Right    float64 `json:"right"`
	Duration float64 `json:"duration_s"`
}

// HeadPose moves the head to the given orientation, angles in degrees.
func (c *Client) HeadPose(pitch, yaw, roll float64, d time.Duration) error {
	return c.post("/goto/head", headPose{Pitch: pitch, Yaw: yaw, Roll: roll, Duration: d.Seconds()})
}

// Antennas moves both antennas, positions in radians.
func (c *Client) Antennas(left, right float64, d time.Duration) error {
	return c.post("/goto/antennas", antennaPose{Left: left, Right: right, Duration: d.Seconds()})
}

// SayNumber speaks a countdown number through the robot speaker.
func (c *Client) SayNumber(n int) error {
	return c.post("/audio/say", map[string]string{"text": fmt.Sprintf("%d", n)})
}

// PlayMusic starts playback of the given URL on the robot speaker.
func (c *Client) PlayMusic(url string) error {
	return c.post("/audio/play", map[string]string{"url": url})
}

// StopAudio stops any ongoing playback.
func (c *Client) StopAudio() error {
	return c.post("/audio/stop", struct{}{})
}

func (c *Client) post(path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := c.http.Post(c.base+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("daemon %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("daemon %s: status %d", path, resp.StatusCode)
	}
	return nil
}
