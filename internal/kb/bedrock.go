package kb

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	batypes "github.com/aws/aws-sdk-go-v2/service/bedrockagent/types"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	bartypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	retrieveCacheSize = 128
	retrieveCacheTTL  = 5 * time.Minute
)

// BedrockStore retrieves from and ingests into an Amazon Bedrock knowledge
// base. Ingestion requires a CUSTOM data source on the knowledge base;
// documents are pushed as inline text. S3-backed data sources cannot accept
// inline documents, so a knowledge base with only S3 sources is read-only
// here and StoreDocument reports that explicitly.
type BedrockStore struct {
	kbID    string
	runtime bedrockRetrieveAPI
	agent   bedrockIngestAPI
	cache   *expirable.LRU[string, []Result]

	mu           sync.Mutex
	dataSourceID string // resolved CUSTOM data source, cached after first lookup
}

// bedrockRetrieveAPI and bedrockIngestAPI are the client subsets used here,
// extracted so tests can stub the AWS calls.
type bedrockRetrieveAPI interface {
	Retrieve(ctx context.Context, in *bedrockagentruntime.RetrieveInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveOutput, error)
}

type bedrockIngestAPI interface {
	IngestKnowledgeBaseDocuments(ctx context.Context, in *bedrockagent.IngestKnowledgeBaseDocumentsInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.IngestKnowledgeBaseDocumentsOutput, error)
	ListDataSources(ctx context.Context, in *bedrockagent.ListDataSourcesInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.ListDataSourcesOutput, error)
	GetDataSource(ctx context.Context, in *bedrockagent.GetDataSourceInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.GetDataSourceOutput, error)
}

func NewBedrockStore(ctx context.Context, kbID, region string) (*BedrockStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &BedrockStore{
		kbID:    kbID,
		runtime: bedrockagentruntime.NewFromConfig(cfg),
		agent:   bedrockagent.NewFromConfig(cfg),
		cache:   expirable.NewLRU[string, []Result](retrieveCacheSize, nil, retrieveCacheTTL),
	}, nil
}

func (s *BedrockStore) ID() string { return s.kbID }

func (s *BedrockStore) Retrieve(ctx context.Context, query string, opts RetrieveOptions) ([]Result, error) {
	opts = opts.withDefaults()

	// Repeated queries within the TTL are served from cache; the REPL issues
	// the same retrieval for follow-up turns on one topic.
	cacheKey := fmt.Sprintf("%d|%.2f|%s", opts.NumResults, opts.MinScore, query)
	if s.cache != nil {
		if cached, ok := s.cache.Get(cacheKey); ok {
			return cached, nil
		}
	}

	out, err := s.runtime.Retrieve(ctx, &bedrockagentruntime.RetrieveInput{
		KnowledgeBaseId: aws.String(s.kbID),
		RetrievalQuery:  &bartypes.KnowledgeBaseQuery{Text: aws.String(query)},
		RetrievalConfiguration: &bartypes.KnowledgeBaseRetrievalConfiguration{
			VectorSearchConfiguration: &bartypes.KnowledgeBaseVectorSearchConfiguration{
				NumberOfResults: aws.Int32(int32(opts.NumResults)),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve from knowledge base %s: %w", s.kbID, err)
	}

	var results []Result
	for _, r := range out.RetrievalResults {
		score := aws.ToFloat64(r.Score)
		if score < opts.MinScore {
			continue
		}
		content := ""
		if r.Content != nil {
			content = aws.ToString(r.Content.Text)
		}
		results = append(results, Result{
			Content: content,
			Score:   score,
		})
	}
	if s.cache != nil {
		s.cache.Add(cacheKey, results)
	}
	slog.Debug("knowledge base retrieval",
		"kb", s.kbID, "hits", len(out.RetrievalResults), "above_threshold", len(results))
	return results, nil
}

func (s *BedrockStore) StoreDocument(ctx context.Context, doc Document) error {
	dsID, err := s.customDataSource(ctx)
	if err != nil {
		return err
	}

	_, err = s.agent.IngestKnowledgeBaseDocuments(ctx, &bedrockagent.IngestKnowledgeBaseDocumentsInput{
		KnowledgeBaseId: aws.String(s.kbID),
		DataSourceId:    aws.String(dsID),
		Documents: []batypes.KnowledgeBaseDocument{{
			Content: &batypes.DocumentContent{
				DataSourceType: batypes.ContentDataSourceTypeCustom,
				Custom: &batypes.CustomContent{
					CustomDocumentIdentifier: &batypes.CustomDocumentIdentifier{
						Id: aws.String(doc.ID),
					},
					SourceType: batypes.CustomSourceTypeInLine,
					InlineContent: &batypes.InlineContent{
						Type: batypes.InlineContentTypeText,
						TextContent: &batypes.TextContentDoc{
							Data: aws.String(doc.Content),
						},
					},
				},
			},
			Metadata: &batypes.DocumentMetadata{
				Type: batypes.MetadataSourceTypeInLineAttribute,
				InlineAttributes: []batypes.MetadataAttribute{{
					Key: aws.String("title"),
					Value: &batypes.MetadataAttributeValue{
						Type:        batypes.MetadataValueTypeString,
						StringValue: aws.String(doc.Title),
					},
				}},
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("ingest document %s into %s: %w", doc.ID, s.kbID, err)
	}
	slog.Debug("document ingested", "kb", s.kbID, "doc_id", doc.ID)
	return nil
}

// customDataSource finds the knowledge base's CUSTOM data source, caching
// the ID after the first lookup.
func (s *BedrockStore) customDataSource(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dataSourceID != "" {
		return s.dataSourceID, nil
	}

	list, err := s.agent.ListDataSources(ctx, &bedrockagent.ListDataSourcesInput{
		KnowledgeBaseId: aws.String(s.kbID),
	})
	if err != nil {
		return "", fmt.Errorf("list data sources for %s: %w", s.kbID, err)
	}

	sawS3 := false
	for _, summary := range list.DataSourceSummaries {
		ds, err := s.agent.GetDataSource(ctx, &bedrockagent.GetDataSourceInput{
			KnowledgeBaseId: aws.String(s.kbID),
			DataSourceId:    summary.DataSourceId,
		})
		if err != nil {
			slog.Warn("failed to inspect data source",
				"kb", s.kbID, "data_source", aws.ToString(summary.DataSourceId), "error", err)
			continue
		}
		switch ds.DataSource.DataSourceConfiguration.Type {
		case batypes.DataSourceTypeCustom:
			s.dataSourceID = aws.ToString(summary.DataSourceId)
			return s.dataSourceID, nil
		case batypes.DataSourceTypeS3:
			sawS3 = true
		}
	}

	if sawS3 {
		return "", fmt.Errorf("knowledge base %s has only S3 data sources; inline storage requires a CUSTOM data source", s.kbID)
	}
	return "", fmt.Errorf("knowledge base %s has no CUSTOM data source for inline storage", s.kbID)
}
