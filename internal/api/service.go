// Package api exposes the resource representation operations behind the
// HTTP surface: read one instance, a collection, or a relationship edge in
// a negotiated format, plus the write operations that feed them. It owns
// the error taxonomy and the response cache, leaving transport concerns
// (headers, compression, routing) to the web layer.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/facet-api/facet/internal/cache"
	"github.com/facet-api/facet/internal/encoding"
	"github.com/facet-api/facet/internal/query"
	"github.com/facet-api/facet/internal/relationships"
	"github.com/facet-api/facet/internal/schema"
	"github.com/facet-api/facet/internal/validation"
)

// Config holds service-level settings
type Config struct {
	// BaseURL prefixes all generated links
	BaseURL string
	// MaxDepth bounds relationship expansion
	MaxDepth int
	// DefaultLimit applies when a collection request names no limit
	DefaultLimit int
	// MaxLimit caps the requested page size
	MaxLimit int
	// Links enables hypermedia links on representations
	Links bool
	// CacheTTL is how long encoded representations stay cached
	CacheTTL time.Duration
}

// DefaultConfig returns the default service configuration
func DefaultConfig() Config {
	return Config{
		BaseURL:      "/api/v1",
		MaxDepth:     relationships.DefaultMaxDepth,
		DefaultLimit: 10,
		MaxLimit:     100,
		Links:        true,
		CacheTTL:     time.Minute,
	}
}

// Service implements the representation operations
type Service struct {
	reg      *schema.Registry
	store    query.MutableStore
	resolver *query.Resolver
	engine   *validation.Engine
	cache    cache.Cache
	logger   *zap.Logger
	cfg      Config

	// lastWrite is the unix-nano time of the latest successful write,
	// serving as the Last-Modified instant for every representation. One
	// timestamp suffices: invalidation is just as coarse.
	lastWrite atomic.Int64
}

// NewService creates a service. The cache is optional; pass nil to disable
// response caching.
func NewService(reg *schema.Registry, store query.MutableStore, c cache.Cache, logger *zap.Logger, cfg Config) *Service {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "/api/v1"
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		reg:      reg,
		store:    store,
		resolver: query.NewResolver(reg, store, cfg.MaxDepth),
		engine:   validation.NewEngine(),
		cache:    c,
		logger:   logger,
		cfg:      cfg,
	}
	s.lastWrite.Store(time.Now().UnixNano())
	return s
}

// Request describes one representation request
type Request struct {
	Kind string
	ID   string // empty requests the collection
	Edge string // non-empty with ID requests a relationship edge

	Expand   string // comma-separated dotted expansion paths
	Page     int
	Limit    int
	SortBy   string
	SortDesc bool
	Search   string
	Filter   map[string]string

	Format encoding.Format
}

func (r Request) format() encoding.Format {
	if r.Format == "" {
		return encoding.FormatJSON
	}
	return r.Format
}

// Response is an encoded representation ready for transport
type Response struct {
	Status       int
	Body         []byte
	ContentType  string
	ETag         string
	LastModified time.Time
}

// Represent resolves and encodes the requested representation. All
// failures come back as *Error.
func (s *Service) Represent(ctx context.Context, req Request) (*Response, *Error) {
	kind, ok := s.reg.Get(req.Kind)
	if !ok {
		return nil, PathNotFound()
	}
	if err := s.checkID(kind, req.ID); err != nil {
		return nil, err
	}

	// Filters narrow the instances actually returned: for an edge request
	// that is the edge's target kind, not the parent.
	filterKind := kind
	if req.Edge != "" {
		if e, ok := kind.Edge(req.Edge); ok {
			if target, ok := s.reg.Get(e.Target); ok {
				filterKind = target
			}
		}
	}
	for field := range req.Filter {
		if !filterKind.HasField(field) {
			return nil, ParamsNotValid(fmt.Sprintf("unknown filter field %s", field))
		}
	}

	if req.ID == "" || req.Edge != "" {
		if req.Page < 1 {
			req.Page = 1
		}
		if req.Limit <= 0 {
			req.Limit = s.cfg.DefaultLimit
		}
		if req.Limit > s.cfg.MaxLimit {
			req.Limit = s.cfg.MaxLimit
		}
	}

	key := s.cacheKey(req)
	if s.cache != nil {
		if body, err := s.cache.Get(ctx, key); err == nil {
			return &Response{
				Status:       http.StatusOK,
				Body:         body,
				ContentType:  req.format().ContentType(),
				ETag:         cache.ETag(body),
				LastModified: s.modifiedAt(),
			}, nil
		}
	}

	body, apiErr := s.encode(ctx, req)
	if apiErr != nil {
		return nil, apiErr
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, body, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("response cache write failed", zap.Error(err))
		}
	}

	return &Response{
		Status:       http.StatusOK,
		Body:         body,
		ContentType:  req.format().ContentType(),
		ETag:         cache.ETag(body),
		LastModified: s.modifiedAt(),
	}, nil
}

func (s *Service) encode(ctx context.Context, req Request) ([]byte, *Error) {
	sel := query.Selector{
		Kind:     req.Kind,
		ID:       req.ID,
		Edge:     req.Edge,
		Page:     req.Page,
		Limit:    req.Limit,
		Filter:   req.Filter,
		Search:   req.Search,
		SortBy:   req.SortBy,
		SortDesc: req.SortDesc,
	}

	graph, err := s.resolver.Resolve(ctx, sel, relationships.ParseSpec(req.Expand))
	if err != nil {
		return nil, s.fail(err)
	}

	opts := encoding.Options{
		BaseURL: s.cfg.BaseURL,
		Links:   s.cfg.Links,
	}
	if req.Edge != "" {
		if parent, ok := s.reg.Get(req.Kind); ok {
			opts.CollectionPath = fmt.Sprintf("%s/%s/%s/%s",
				s.cfg.BaseURL, parent.Plural, req.ID, req.Edge)
		}
	}

	body, err := encoding.Encode(graph, req.format(), opts)
	if err != nil {
		return nil, s.fail(err)
	}
	return body, nil
}

// Create validates and stores a new instance, then returns its
// representation with status 201. A missing identifier is generated.
func (s *Service) Create(ctx context.Context, req Request, payload map[string]interface{}) (*Response, *Error) {
	kind, ok := s.reg.Get(req.Kind)
	if !ok {
		return nil, PathNotFound()
	}

	candidate := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		candidate[k] = v
	}
	if _, present := candidate["id"]; !present {
		candidate["id"] = uuid.NewString()
	}

	record, err := s.engine.Validate(kind, candidate)
	if err != nil {
		return nil, s.fail(err)
	}
	if apiErr := s.checkReferences(ctx, kind, record); apiErr != nil {
		return nil, apiErr
	}

	if err := s.store.Insert(ctx, kind.Name, record); err != nil {
		return nil, s.fail(err)
	}
	s.invalidate(ctx)

	id, _ := record["id"].(string)
	resp, apiErr := s.Represent(ctx, Request{Kind: req.Kind, ID: id, Format: req.Format})
	if apiErr != nil {
		return nil, apiErr
	}
	resp.Status = http.StatusCreated
	return resp, nil
}

// Update validates and replaces an existing instance, then returns its
// representation. The identifier in the payload is forced to the path
// identifier.
func (s *Service) Update(ctx context.Context, req Request, payload map[string]interface{}) (*Response, *Error) {
	kind, ok := s.reg.Get(req.Kind)
	if !ok {
		return nil, PathNotFound()
	}
	if err := s.checkID(kind, req.ID); err != nil {
		return nil, err
	}

	candidate := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		candidate[k] = v
	}
	candidate["id"] = req.ID

	record, err := s.engine.Validate(kind, candidate)
	if err != nil {
		return nil, s.fail(err)
	}
	if apiErr := s.checkReferences(ctx, kind, record); apiErr != nil {
		return nil, apiErr
	}

	if err := s.store.Update(ctx, kind.Name, req.ID, record); err != nil {
		return nil, s.fail(err)
	}
	s.invalidate(ctx)

	return s.Represent(ctx, Request{Kind: req.Kind, ID: req.ID, Format: req.Format})
}

// Delete removes an instance
func (s *Service) Delete(ctx context.Context, req Request) (*Response, *Error) {
	kind, ok := s.reg.Get(req.Kind)
	if !ok {
		return nil, PathNotFound()
	}
	if err := s.checkID(kind, req.ID); err != nil {
		return nil, err
	}

	if err := s.store.Delete(ctx, kind.Name, req.ID); err != nil {
		return nil, s.fail(err)
	}
	s.invalidate(ctx)

	return &Response{Status: http.StatusNoContent}, nil
}

// checkID validates the path identifier's format when the kind's primary
// key is a UUID. Format errors on path parameters are parameter errors,
// not lookup misses.
func (s *Service) checkID(kind *schema.Kind, id string) *Error {
	if id == "" {
		return nil
	}
	pk, err := kind.PrimaryKey()
	if err != nil || pk.Type != schema.TypeUUID {
		return nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return ParamsNotValid("id format invalid")
	}
	return nil
}

// checkReferences verifies that every reference written by a payload points
// at an existing record, reading them all from one snapshot.
func (s *Service) checkReferences(ctx context.Context, kind *schema.Kind, record map[string]interface{}) *Error {
	var refs []*schema.Field
	for _, f := range kind.Fields {
		if f.Type == schema.TypeRef {
			if _, present := record[f.Name]; present && record[f.Name] != nil {
				refs = append(refs, f)
			}
		}
	}
	if len(refs) == 0 {
		return nil
	}

	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return s.fail(err)
	}
	defer snap.Close()

	for _, f := range refs {
		id, _ := record[f.Name].(string)
		if _, err := snap.Get(ctx, f.Target, id); err != nil {
			return NotFound(fmt.Sprintf("%s not found", f.Name))
		}
	}
	return nil
}

// cacheKey derives a deterministic key from everything that can change the
// encoded representation
func (s *Service) cacheKey(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s/%s/%s?format=%s&expand=%s&page=%d&limit=%d&sort=%s&desc=%t&search=%s",
		req.Kind, req.ID, req.Edge, req.format(), req.Expand,
		req.Page, req.Limit, req.SortBy, req.SortDesc, req.Search)

	if len(req.Filter) > 0 {
		names := make([]string, 0, len(req.Filter))
		for name := range req.Filter {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "&%s=%s", name, req.Filter[name])
		}
	}
	return b.String()
}

// invalidate drops all cached representations after a write and advances
// the modification instant. Invalidation is coarse: any write may change
// expanded representations of other kinds.
func (s *Service) invalidate(ctx context.Context) {
	s.lastWrite.Store(time.Now().UnixNano())
	if s.cache == nil {
		return
	}
	if err := s.cache.Clear(ctx); err != nil {
		s.logger.Warn("response cache invalidation failed", zap.Error(err))
	}
}

// modifiedAt returns the time of the latest write
func (s *Service) modifiedAt() time.Time {
	return time.Unix(0, s.lastWrite.Load()).UTC()
}

// fail converts an error, logging the cause when it maps to a server error
func (s *Service) fail(err error) *Error {
	apiErr := Convert(err)
	if apiErr.Status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	return apiErr
}
