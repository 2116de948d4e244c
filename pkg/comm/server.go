package comm

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type agreeRequest struct {
	Key      string `json:"key"`
	Rank     int    `json:"rank"`
	Proposal string `json:"proposal"`
}

type agreeResponse struct {
	Proposal string `json:"proposal"`
}

type barrierRequest struct {
	Key  string `json:"key"`
	Rank int    `json:"rank"`
}

// gathering collects one submission per rank for a single key. done is
// closed once every rank has arrived; winner is set before the close.
// Completion also drops the entry from the server map, so the map holds
// in-flight keys only and waiters read the result through their own
// reference.
type gathering struct {
	proposals map[int]string
	done      chan struct{}
	winner    string
}

// RendezvousServer hosts the HTTP rendezvous a process group coordinates
// through. Rank 0 runs it; every rank, rank 0 included, talks to it with
// the HTTP communicator.
type RendezvousServer struct {
	*gin.Engine

	worldSize int

	mu         sync.Mutex
	gatherings map[string]*gathering
}

// NewRendezvousServer builds the rendezvous for a group of worldSize
// ranks.
func NewRendezvousServer(worldSize int) *RendezvousServer {
	ginServer := gin.New()
	s := &RendezvousServer{
		Engine:     ginServer,
		worldSize:  worldSize,
		gatherings: map[string]*gathering{},
	}
	ginServer.POST("/api/v1/agreements", s.postAgreement)
	ginServer.POST("/api/v1/barriers", s.postBarrier)
	ginServer.GET("/api/v1/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, nil)
	})
	return s
}

// join records a submission and returns the gathering to wait on. The
// last submission completes the gathering and retires its key.
func (s *RendezvousServer) join(key string, rank int, proposal string) *gathering {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.gatherings[key]
	if !ok {
		g = &gathering{
			proposals: make(map[int]string, s.worldSize),
			done:      make(chan struct{}),
		}
		s.gatherings[key] = g
	}
	if _, seen := g.proposals[rank]; !seen {
		g.proposals[rank] = proposal
		if len(g.proposals) == s.worldSize {
			for r := 0; ; r++ {
				if p, ok := g.proposals[r]; ok {
					g.winner = p
					break
				}
			}
			close(g.done)
			delete(s.gatherings, key)
		}
	}
	return g
}

func (s *RendezvousServer) postAgreement(ctx *gin.Context) {
	var req agreeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.WithError(err).Error("failed to parse agreement request")
		ctx.JSON(http.StatusBadRequest, nil)
		return
	}
	if req.Key == "" || req.Rank < 0 || req.Rank >= s.worldSize {
		log.Errorf("invalid agreement submission: key %q rank %d", req.Key, req.Rank)
		ctx.JSON(http.StatusBadRequest, nil)
		return
	}

	g := s.join("agree/"+req.Key, req.Rank, req.Proposal)
	select {
	case <-g.done:
		ctx.JSON(http.StatusOK, agreeResponse{Proposal: g.winner})
	case <-ctx.Request.Context().Done():
		ctx.JSON(http.StatusInternalServerError, nil)
	}
}

func (s *RendezvousServer) postBarrier(ctx *gin.Context) {
	var req barrierRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.WithError(err).Error("failed to parse barrier request")
		ctx.JSON(http.StatusBadRequest, nil)
		return
	}
	if req.Key == "" || req.Rank < 0 || req.Rank >= s.worldSize {
		log.Errorf("invalid barrier submission: key %q rank %d", req.Key, req.Rank)
		ctx.JSON(http.StatusBadRequest, nil)
		return
	}

	g := s.join("barrier/"+req.Key, req.Rank, "")
	select {
	case <-g.done:
		ctx.JSON(http.StatusOK, nil)
	case <-ctx.Request.Context().Done():
		ctx.JSON(http.StatusInternalServerError, nil)
	}
}
