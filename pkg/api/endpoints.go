package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/leadsheet/pkg/clean"
	"github.com/hazyhaar/leadsheet/pkg/dedup"
	"github.com/hazyhaar/leadsheet/pkg/ingest"
	"github.com/hazyhaar/leadsheet/pkg/kit"
	"github.com/hazyhaar/leadsheet/pkg/lead"
	"github.com/hazyhaar/leadsheet/pkg/sheet"
	"github.com/hazyhaar/leadsheet/pkg/store"
)

// Store is the part of the record store the operator surfaces use directly.
type Store interface {
	ListFiles(ctx context.Context, bucket string, from, to time.Time) ([]store.FileSummary, error)
	ListByFile(ctx context.Context, bucket, sourceFile string, limit, offset int) ([]lead.Record, error)
	DeleteWhere(ctx context.Context, bucket, sourceFile string) (int64, error)
	SearchByName(ctx context.Context, term, phone string) ([]lead.Record, error)
	Ping(ctx context.Context) error
}

// Deps wires the endpoints to the pipeline.
type Deps struct {
	Cleaner     *clean.Cleaner
	Store       Store
	Detector    *dedup.Detector
	Coordinator *ingest.Coordinator
	Logger      *slog.Logger
}

// Endpoints are the actions shared by HTTP, MCP and the CLI.
type Endpoints struct {
	Clean         kit.Endpoint
	Ingest        kit.Endpoint
	Duplicates    kit.Endpoint
	Buckets       kit.Endpoint
	ListFiles     kit.Endpoint
	ListByFile    kit.Endpoint
	DeleteFile    kit.Endpoint
	Search        kit.Endpoint
	NormalizeCell kit.Endpoint

	store Store
}

// NewEndpoints builds every endpoint, each wrapped with request ID and
// logging middleware.
func NewEndpoints(d Deps) *Endpoints {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	wrap := func(name string, ep kit.Endpoint) kit.Endpoint {
		return kit.Chain(kit.RequestID(), kit.Logging(logger, name))(ep)
	}
	return &Endpoints{
		Clean:         wrap("clean", cleanEndpoint(d.Cleaner)),
		Ingest:        wrap("ingest", ingestEndpoint(d.Cleaner, d.Coordinator)),
		Duplicates:    wrap("duplicates", duplicatesEndpoint(d.Detector)),
		Buckets:       wrap("buckets", bucketsEndpoint()),
		ListFiles:     wrap("list_files", listFilesEndpoint(d.Store)),
		ListByFile:    wrap("list_by_file", listByFileEndpoint(d.Store)),
		DeleteFile:    wrap("delete_file", deleteFileEndpoint(d.Store)),
		Search:        wrap("search", searchEndpoint(d.Store)),
		NormalizeCell: wrap("normalize_cell", normalizeCellEndpoint(d.Cleaner)),
		store:         d.Store,
	}
}

// InputError marks an operator mistake (missing field, bad parameter).
type InputError struct{ Err error }

func (e *InputError) Error() string { return e.Err.Error() }

func (e *InputError) Unwrap() error { return e.Err }

func invalid(format string, args ...any) error {
	return &InputError{Err: fmt.Errorf(format, args...)}
}

// isInputError reports whether err is the caller's fault.
func isInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie) ||
		errors.Is(err, sheet.ErrEmptyTable) ||
		errors.Is(err, sheet.ErrNoSheet) ||
		errors.Is(err, sheet.ErrUnsupportedFormat) ||
		errors.Is(err, ingest.ErrMissingBucket) ||
		errors.Is(err, ingest.ErrMissingFileName)
}

// Shared request/response types used by every transport.

type CleanRequest struct {
	Table   *sheet.Table
	Options clean.Options
}

type CleanResponse struct {
	Table           *sheet.Table  `json:"table"`
	CellsChanged    int           `json:"cells_changed"`
	RowsRemoved     int           `json:"rows_removed"`
	BatchDuplicates []dedup.Group `json:"batch_duplicates"`
}

type IngestRequest struct {
	Table   *sheet.Table
	Options clean.Options
	Target  lead.Target
}

type IngestResponse struct {
	*ingest.Outcome
	CellsChanged int `json:"cells_changed"`
	RowsRemoved  int `json:"rows_removed"`
}

type DuplicatesResponse struct {
	Bucket string        `json:"bucket"`
	Groups []dedup.Group `json:"groups"`
}

type BucketsResponse struct {
	Buckets []string `json:"buckets"`
}

type ListFilesRequest struct {
	Bucket   string
	From, To time.Time
}

type ListFilesResponse struct {
	Bucket string              `json:"bucket"`
	Files  []store.FileSummary `json:"files"`
}

type FileRequest struct {
	Bucket string
	File   string
	Limit  int
	Offset int
}

type RecordsResponse struct {
	Count   int           `json:"count"`
	Records []lead.Record `json:"records"`
}

type DeleteResponse struct {
	Deleted int64 `json:"deleted"`
}

type SearchRequest struct {
	Term  string
	Phone string
}

type NormalizeRequest struct {
	Value   string
	Options clean.Options
}

type NormalizeResponse struct {
	Value   string  `json:"value"`
	ISODate *string `json:"iso_date"`
}

func cleanTable(c *clean.Cleaner, t *sheet.Table, opts clean.Options) (*clean.Result, error) {
	if t == nil {
		return nil, sheet.ErrEmptyTable
	}
	return c.Clean(t, opts), nil
}

func cleanEndpoint(c *clean.Cleaner) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*CleanRequest)
		res, err := cleanTable(c, req.Table, req.Options)
		if err != nil {
			return nil, err
		}
		groups := dedup.GroupBatch(lead.MapTable(res.Table, lead.Target{}))
		if groups == nil {
			groups = []dedup.Group{}
		}
		return &CleanResponse{
			Table:           res.Table,
			CellsChanged:    res.CellsChanged,
			RowsRemoved:     res.RowsRemoved,
			BatchDuplicates: groups,
		}, nil
	}
}

// ingestEndpoint cleans the upload then loads it. On a store failure it
// returns both the partial response and the error.
func ingestEndpoint(c *clean.Cleaner, coord *ingest.Coordinator) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*IngestRequest)
		if err := ingest.ValidateTarget(req.Target); err != nil {
			return nil, err
		}
		res, err := cleanTable(c, req.Table, req.Options)
		if err != nil {
			return nil, err
		}
		out, err := coord.Ingest(ctx, res.Table, req.Target)
		return &IngestResponse{Outcome: out, CellsChanged: res.CellsChanged, RowsRemoved: res.RowsRemoved}, err
	}
}

func duplicatesEndpoint(d *dedup.Detector) kit.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		groups, err := d.FindAllDuplicateGroups(ctx)
		if err != nil {
			return nil, err
		}
		if groups == nil {
			groups = []dedup.Group{}
		}
		return &DuplicatesResponse{Bucket: d.Bucket(), Groups: groups}, nil
	}
}

func bucketsEndpoint() kit.Endpoint {
	return func(context.Context, any) (any, error) {
		return &BucketsResponse{Buckets: lead.Buckets}, nil
	}
}

func listFilesEndpoint(s Store) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*ListFilesRequest)
		if req.Bucket == "" {
			return nil, &InputError{Err: ingest.ErrMissingBucket}
		}
		files, err := s.ListFiles(ctx, req.Bucket, req.From, req.To)
		if err != nil {
			return nil, err
		}
		if files == nil {
			files = []store.FileSummary{}
		}
		return &ListFilesResponse{Bucket: req.Bucket, Files: files}, nil
	}
}

func listByFileEndpoint(s Store) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*FileRequest)
		if err := ingest.ValidateTarget(lead.Target{Bucket: req.Bucket, SourceFile: req.File}); err != nil {
			return nil, err
		}
		recs, err := s.ListByFile(ctx, req.Bucket, req.File, req.Limit, req.Offset)
		if err != nil {
			return nil, err
		}
		return records(recs), nil
	}
}

func deleteFileEndpoint(s Store) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*FileRequest)
		if err := ingest.ValidateTarget(lead.Target{Bucket: req.Bucket, SourceFile: req.File}); err != nil {
			return nil, err
		}
		n, err := s.DeleteWhere(ctx, req.Bucket, req.File)
		if err != nil {
			return nil, err
		}
		return &DeleteResponse{Deleted: n}, nil
	}
}

func searchEndpoint(s Store) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*SearchRequest)
		if req.Term == "" {
			return nil, invalid("search term is required")
		}
		recs, err := s.SearchByName(ctx, req.Term, req.Phone)
		if err != nil {
			return nil, err
		}
		return records(recs), nil
	}
}

func normalizeCellEndpoint(c *clean.Cleaner) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*NormalizeRequest)
		fixed := c.FixCell(sheet.Text(req.Value), req.Options)
		return &NormalizeResponse{Value: fixed.String(), ISODate: lead.ToISODate(fixed)}, nil
	}
}

func records(recs []lead.Record) *RecordsResponse {
	if recs == nil {
		recs = []lead.Record{}
	}
	return &RecordsResponse{Count: len(recs), Records: recs}
}
