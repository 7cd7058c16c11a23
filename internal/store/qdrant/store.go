// Package qdrant implements the vector store over a remote Qdrant
// collection via gRPC.
package qdrant

import (
	"context"
	"fmt"
	"strconv"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/careersync/careersync/internal/domain"
	"github.com/careersync/careersync/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store is the sole owner of all Qdrant operations.
type Store struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	dim         int
}

// New creates a Store connected to Qdrant at the given gRPC address.
func New(addr, collection string, dim int) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial qdrant %s: %w", addr, err)
	}
	return &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		dim:         dim,
	}, nil
}

// Close closes the underlying gRPC connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Ping checks connectivity by listing collections.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.collections.List(ctx, &pb.ListCollectionsRequest{}); err != nil {
		return fmt.Errorf("qdrant ping: %w", err)
	}
	return nil
}

// EnsureCollection creates the collection with cosine distance if it
// does not exist yet.
func (s *Store) EnsureCollection(ctx context.Context) error {
	exists, err := s.collectionExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(s.dim),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", s.collection, err)
	}
	return nil
}

func (s *Store) collectionExists(ctx context.Context) (bool, error) {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return false, fmt.Errorf("list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return true, nil
		}
	}
	return false, nil
}

// WaitForReady polls until the collection reports green status or the
// timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for collection %s: %w", s.collection, ctx.Err())
		case <-ticker.C:
			info, err := s.collections.Get(ctx, &pb.GetCollectionInfoRequest{
				CollectionName: s.collection,
			})
			if err != nil {
				continue
			}
			if info.GetResult().GetStatus() == pb.CollectionStatus_Green {
				return nil
			}
		}
	}
}

// Upsert stores points with their metadata payload.
func (s *Store) Upsert(ctx context.Context, points []store.Point) error {
	if len(points) == 0 {
		return nil
	}

	pts := make([]*pb.PointStruct, len(points))
	for i, p := range points {
		// Catalog IDs are row positions. Refuse anything else instead of
		// colliding on point 0.
		num, err := strconv.ParseUint(p.ID, 10, 64)
		if err != nil {
			return fmt.Errorf("point id %q is not numeric: %w", p.ID, err)
		}

		payload := make(map[string]*pb.Value, len(p.Meta))
		for k, v := range p.Meta {
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
		}

		pts[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Num{Num: num},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: p.Vector},
				},
			},
			Payload: payload,
		}
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         pts,
	})
	if err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

// Query performs k-NN similarity search with payload metadata.
func (s *Store) Query(ctx context.Context, vector []float32, k int) ([]store.Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %s: %w", err, domain.ErrUpstreamUnavailable)
	}

	hits := make([]store.Hit, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		meta := make(map[string]string, len(r.GetPayload()))
		for k, v := range r.GetPayload() {
			meta[k] = v.GetStringValue()
		}
		hits[i] = store.Hit{
			ID:    fmt.Sprintf("%d", r.GetId().GetNum()),
			Score: float64(r.GetScore()),
			Meta:  meta,
		}
	}
	return hits, nil
}
