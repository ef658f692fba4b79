// Package qdrant provides a TranslationMemory implementation using Qdrant.
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ersonp/lingo-core/internal/domain/ports"
	"github.com/ersonp/lingo-core/internal/infrastructure/config"
)

// Repository implements the TranslationMemory interface using Qdrant.
type Repository struct {
	client     pb.CollectionsClient
	points     pb.PointsClient
	collection string
	conn       *grpc.ClientConn
}

// NewRepository creates a new Qdrant repository.
func NewRepository(cfg config.QdrantConfig) (*Repository, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}

	return &Repository{
		client:     pb.NewCollectionsClient(conn),
		points:     pb.NewPointsClient(conn),
		collection: cfg.Collection,
		conn:       conn,
	}, nil
}

// Close closes the gRPC connection.
func (r *Repository) Close() error {
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// EnsureCollection creates the collection if it doesn't exist.
func (r *Repository) EnsureCollection(ctx context.Context, vectorSize uint64) error {
	_, err := r.client.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: r.collection,
	})
	if err == nil {
		return nil
	}

	_, err = r.client.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     vectorSize,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	return nil
}

// SaveSegment upserts one translated segment. The point id is derived
// deterministically from the segment id, so re-remembering a unit replaces
// its old entry instead of accumulating duplicates.
func (r *Repository) SaveSegment(ctx context.Context, seg ports.MemorySegment) error {
	pointID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(seg.ID)).String()

	point := &pb.PointStruct{
		Id: &pb.PointId{
			PointIdOptions: &pb.PointId_Uuid{
				Uuid: pointID,
			},
		},
		Vectors: &pb.Vectors{
			VectorsOptions: &pb.Vectors_Vector{
				Vector: &pb.Vector{
					Data: seg.Embedding,
				},
			},
		},
		Payload: map[string]*pb.Value{
			"segment_id":      {Kind: &pb.Value_StringValue{StringValue: seg.ID}},
			"unit_id":         {Kind: &pb.Value_StringValue{StringValue: seg.UnitID}},
			"locale":          {Kind: &pb.Value_StringValue{StringValue: seg.Locale}},
			"source_text":     {Kind: &pb.Value_StringValue{StringValue: seg.SourceText}},
			"translated_text": {Kind: &pb.Value_StringValue{StringValue: seg.TranslatedText}},
		},
	}

	_, err := r.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collection,
		Points:         []*pb.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("upserting point: %w", err)
	}

	return nil
}

// SearchSimilar performs a semantic search for past translations into the
// given locale.
func (r *Repository) SearchSimilar(ctx context.Context, embedding []float32, locale string, limit int) ([]ports.MemoryMatch, error) {
	resp, err := r.points.Search(ctx, &pb.SearchPoints{
		CollectionName: r.collection,
		Vector:         embedding,
		Limit:          uint64(limit),
		Filter: &pb.Filter{
			Must: []*pb.Condition{
				{
					ConditionOneOf: &pb.Condition_Field{
						Field: &pb.FieldCondition{
							Key: "locale",
							Match: &pb.Match{
								MatchValue: &pb.Match_Keyword{
									Keyword: locale,
								},
							},
						},
					},
				},
			},
		},
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
		WithVectors: &pb.WithVectorsSelector{
			SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: false},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("searching points: %w", err)
	}

	matches := make([]ports.MemoryMatch, 0, len(resp.Result))
	for _, point := range resp.Result {
		payload := point.Payload
		matches = append(matches, ports.MemoryMatch{
			Segment: ports.MemorySegment{
				ID:             getStringValue(payload, "segment_id"),
				UnitID:         getStringValue(payload, "unit_id"),
				Locale:         getStringValue(payload, "locale"),
				SourceText:     getStringValue(payload, "source_text"),
				TranslatedText: getStringValue(payload, "translated_text"),
			},
			Score: point.Score,
		})
	}

	return matches, nil
}

// Count returns the total number of stored segments.
func (r *Repository) Count(ctx context.Context) (uint64, error) {
	resp, err := r.client.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: r.collection,
	})
	if err != nil {
		return 0, fmt.Errorf("getting collection info: %w", err)
	}

	if resp.Result.PointsCount == nil {
		return 0, nil
	}

	return *resp.Result.PointsCount, nil
}

// getStringValue extracts a string from a point payload.
func getStringValue(payload map[string]*pb.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}
