package planner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/route-weather/internal/directions"
	"github.com/i474232898/route-weather/internal/metrics"
	"github.com/i474232898/route-weather/internal/scoring"
	"github.com/i474232898/route-weather/internal/store"
)

// ErrDirections marks requests for which no route could be planned.
var ErrDirections = errors.New("could not plan any route")

// Directions supplies alternative routes between two free-text places.
type Directions interface {
	Routes(ctx context.Context, origin, destination string) (directions.Result, error)
}

// Request asks for weather-ranked routes. A nil DepartureTime means now.
type Request struct {
	Origin        string
	Destination   string
	DepartureTime *time.Time
}

// Response is the complete answer for one Request.
type Response struct {
	OriginAddress      string                 `json:"origin_address"`
	DestinationAddress string                 `json:"destination_address"`
	Routes             []RouteWithWeather     `json:"routes"`
	Recommendation     scoring.Recommendation `json:"recommendation"`
}

// Service plans requests end to end and caches complete responses.
type Service struct {
	directions Directions
	pipeline   *Pipeline
	cache      *store.MemoryStore[Response] // optional
	timeout    time.Duration
	now        func() time.Time
}

// NewService creates a Service. cache may be nil; a non-positive timeout
// disables the outer deadline.
func NewService(dirs Directions, pipeline *Pipeline, cache *store.MemoryStore[Response], timeout time.Duration) *Service {
	return &Service{
		directions: dirs,
		pipeline:   pipeline,
		cache:      cache,
		timeout:    timeout,
		now:        time.Now,
	}
}

// Plan fetches the alternatives, annotates them with weather and ranks them.
func (s *Service) Plan(ctx context.Context, req Request) (Response, error) {
	reqID := uuid.NewString()
	begin := time.Now()

	departure := s.now().UTC()
	if req.DepartureTime != nil {
		departure = req.DepartureTime.UTC()
	}

	key := CacheKey(req.Origin, req.Destination, departure)
	if s.cache != nil {
		if resp, err := s.cache.Get(key); err == nil {
			log.Printf("INFO: req_id=%s op=plan cache=hit", reqID)
			metrics.PlanRequests.WithLabelValues("cached").Inc()
			return resp, nil
		}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.plan(ctx, reqID, req, departure)
	metrics.PlanDuration.Observe(time.Since(begin).Seconds())
	if err != nil {
		log.Printf("ERROR: req_id=%s op=plan dur=%dms: %v", reqID, time.Since(begin).Milliseconds(), err)
		metrics.PlanRequests.WithLabelValues("error").Inc()
		return Response{}, err
	}

	if s.cache != nil {
		s.cache.Put(key, resp)
	}
	metrics.PlanRequests.WithLabelValues("ok").Inc()
	log.Printf("INFO: req_id=%s op=plan routes=%d dur=%dms", reqID, len(resp.Routes), time.Since(begin).Milliseconds())
	return resp, nil
}

func (s *Service) plan(ctx context.Context, reqID string, req Request, departure time.Time) (Response, error) {
	stage := time.Now()
	dirs, err := s.directions.Routes(ctx, req.Origin, req.Destination)
	if err != nil {
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		return Response{}, fmt.Errorf("%w: %w", ErrDirections, err)
	}
	log.Printf("INFO: req_id=%s op=directions routes=%d dur=%dms", reqID, len(dirs.Routes), time.Since(stage).Milliseconds())

	stage = time.Now()
	res, err := s.pipeline.AnnotateAndScore(ctx, dirs.Routes, departure)
	if err != nil {
		return Response{}, err
	}
	log.Printf("INFO: req_id=%s op=annotate keys=%d cached=%d failed=%d dur=%dms",
		reqID, res.Weather.Keys, res.Weather.Cached, res.Weather.Failed, time.Since(stage).Milliseconds())

	// Unresolved keys after the outer deadline are a timeout, not partial data.
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Response{}, ctx.Err()
	}

	return Response{
		OriginAddress:      dirs.OriginAddress,
		DestinationAddress: dirs.DestinationAddress,
		Routes:             res.Routes,
		Recommendation:     res.Recommendation,
	}, nil
}

// CacheKey identifies a request by its normalized endpoints and departure hour.
func CacheKey(origin, destination string, departure time.Time) string {
	raw := strings.Join([]string{
		strings.ToLower(strings.TrimSpace(origin)),
		strings.ToLower(strings.TrimSpace(destination)),
		departure.UTC().Format("2006-01-02T15"),
	}, "\x00")
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
