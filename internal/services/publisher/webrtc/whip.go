package webrtc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const whipMaxAttempts = 3

// whipBackoff is the base delay between WHIP attempts, scaled by attempt².
var whipBackoff = 500 * time.Millisecond

// postOffer sends an SDP offer to a WHIP endpoint and returns the answer and
// the absolute resource URL used to tear the session down.
func postOffer(ctx context.Context, client *http.Client, whipURL, offer string) (answer, resource string, err error) {
	for attempt := 0; attempt < whipMaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt*attempt) * whipBackoff):
			case <-ctx.Done():
				return "", "", ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, whipURL, strings.NewReader(offer))
		if err != nil {
			return "", "", fmt.Errorf("failed to create WHIP request: %w", err)
		}
		req.Header.Set("Content-Type", "application/sdp")
		req.Header.Set("Accept", "application/sdp")

		resp, err := client.Do(req)
		if err != nil {
			if attempt == whipMaxAttempts-1 {
				return "", "", fmt.Errorf("failed WHIP POST after %d attempts: %w", whipMaxAttempts, err)
			}
			continue
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusCreated:
			if readErr != nil {
				return "", "", fmt.Errorf("failed reading WHIP answer: %w", readErr)
			}
			return string(body), absoluteResource(whipURL, resp.Header.Get("Location")), nil
		case retryableWHIPStatus(resp.StatusCode):
			log.Warn().
				Str("url", whipURL).
				Int("status", resp.StatusCode).
				Int("attempt", attempt+1).
				Msg("WHIP endpoint busy, will retry")
			if attempt == whipMaxAttempts-1 {
				return "", "", fmt.Errorf("WHIP POST failed after %d attempts: %d - %s", whipMaxAttempts, resp.StatusCode, string(body))
			}
		default:
			return "", "", fmt.Errorf("WHIP POST failed: %d - %s", resp.StatusCode, string(body))
		}
	}
	return "", "", fmt.Errorf("failed to establish WHIP connection after %d attempts", whipMaxAttempts)
}

func retryableWHIPStatus(code int) bool {
	switch code {
	case http.StatusConflict, http.StatusLocked, http.StatusForbidden, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// absoluteResource resolves a relative Location header against the WHIP URL.
func absoluteResource(whipURL, location string) string {
	if location == "" {
		return ""
	}
	base, err := url.Parse(whipURL)
	if err != nil {
		return location
	}
	ref, err := url.Parse(location)
	if err != nil {
		return location
	}
	return base.ResolveReference(ref).String()
}

func deleteResource(client *http.Client, resource string) error {
	if resource == "" {
		return nil
	}
	req, err := http.NewRequest(http.MethodDelete, resource, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// MediaMTX control API: GET /v3/webrtcsessions/list, POST /v3/webrtcsessions/kick/{id}.
type mediaMTXSessionItem struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

type mediaMTXSessionsList struct {
	Items []mediaMTXSessionItem `json:"items"`
}

// kickSessions removes WebRTC sessions whose path matches. It returns how many were kicked.
func kickSessions(client *http.Client, apiBase string, match func(path string) bool) (int, error) {
	if apiBase == "" {
		return 0, nil
	}
	apiBase = strings.TrimRight(apiBase, "/")

	listURL := apiBase + "/v3/webrtcsessions/list"
	resp, err := client.Get(listURL)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch webrtcsessions list: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("webrtcsessions list returned %d", resp.StatusCode)
	}

	var list mediaMTXSessionsList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return 0, fmt.Errorf("failed to decode webrtcsessions list: %w", err)
	}

	kicked := 0
	for _, item := range list.Items {
		if !match(item.Path) {
			continue
		}
		if err := postNoBody(client, fmt.Sprintf("%s/v3/webrtcsessions/kick/%s", apiBase, item.ID)); err != nil {
			log.Warn().Err(err).Str("session_id", item.ID).Msg("Failed to kick WebRTC session")
			continue
		}
		kicked++
	}
	return kicked, nil
}

func postNoBody(client *http.Client, target string) error {
	req, err := http.NewRequest(http.MethodPost, target, bytes.NewReader(nil))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
}
