package comm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

const rendezvousURLPrefix = "api/v1"

// HTTPCommunicator coordinates one rank through a RendezvousServer.
// Requests carry no timeout: a barrier with a missing rank blocks until
// the caller's context is cancelled, mirroring collective semantics.
type HTTPCommunicator struct {
	endpoint  string
	rank      int
	worldSize int

	barriers atomic.Int64
}

// NewHTTP builds the communicator for one rank of a group coordinated at
// endpoint (e.g. "http://10.0.0.1:17021").
func NewHTTP(endpoint string, rank, worldSize int) (*HTTPCommunicator, error) {
	if worldSize < 1 {
		return nil, fmt.Errorf("invalid world size %d", worldSize)
	}
	if rank < 0 || rank >= worldSize {
		return nil, fmt.Errorf("rank %d out of range for world size %d", rank, worldSize)
	}
	return &HTTPCommunicator{endpoint: endpoint, rank: rank, worldSize: worldSize}, nil
}

func (c *HTTPCommunicator) Rank() int      { return c.rank }
func (c *HTTPCommunicator) WorldSize() int { return c.worldSize }

// Barrier enters the next barrier of the group. Every rank issues
// barriers in the same order, so a per-rank sequence number names the
// barrier consistently across the group.
func (c *HTTPCommunicator) Barrier(ctx context.Context) error {
	seq := c.barriers.Add(1)
	body := barrierRequest{Key: strconv.FormatInt(seq, 10), Rank: c.rank}
	return c.post(ctx, "barriers", body, nil)
}

func (c *HTTPCommunicator) Agree(ctx context.Context, key, proposal string) (string, error) {
	var out agreeResponse
	body := agreeRequest{Key: key, Rank: c.rank, Proposal: proposal}
	if err := c.post(ctx, "agreements", body, &out); err != nil {
		return "", err
	}
	return out.Proposal, nil
}

// WaitReady polls the rendezvous health route until it answers or the
// context expires. Ranks start in any order, so callers probe before the
// first collective to avoid racing a coordinator that has not bound its
// socket yet.
func (c *HTTPCommunicator) WaitReady(ctx context.Context) error {
	for {
		req, err := http.NewRequest("GET",
			fmt.Sprintf("%s/%s/%s", c.endpoint, rendezvousURLPrefix, "health"), nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req.WithContext(ctx))
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (c *HTTPCommunicator) post(ctx context.Context, resource string, body, out interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest("POST",
		fmt.Sprintf("%s/%s/%s", c.endpoint, rendezvousURLPrefix, resource), bytes.NewReader(bodyBytes))
	if err != nil {
		log.WithError(err).Errorf("failed to create %s request", resource)
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req.WithContext(ctx))
	if err != nil {
		log.WithError(err).Errorf("failed to reach rendezvous for %s", resource)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Errorf("rendezvous %s response.status.code: %d", resource, resp.StatusCode)
		return fmt.Errorf("rendezvous %s returned status %d", resource, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
