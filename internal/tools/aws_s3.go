package tools

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const s3MaxInlineObject = 100 * 1024

// S3Tool exposes Amazon S3 operations. The client is built lazily on first
// use so the tool can be registered without AWS credentials present.
type S3Tool struct {
	region string
	client *s3.Client
}

func NewS3Tool(region string) *S3Tool {
	return &S3Tool{region: region}
}

func (t *S3Tool) Name() string { return "aws_s3" }

func (t *S3Tool) Description() string {
	return "Interact with Amazon S3: list buckets and objects, read and write objects, upload and download files, delete objects. Uses the standard AWS credential chain."
}

func (t *S3Tool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"operation": map[string]interface{}{
				"type":        "string",
				"description": "The S3 operation to perform.",
				"enum": []string{
					"list_buckets", "list_objects", "get_object", "put_object",
					"upload_file", "download_file", "delete_object",
				},
			},
			"bucket": map[string]interface{}{
				"type":        "string",
				"description": "Bucket name (all operations except list_buckets).",
			},
			"key": map[string]interface{}{
				"type":        "string",
				"description": "Object key.",
			},
			"prefix": map[string]interface{}{
				"type":        "string",
				"description": "Key prefix filter for list_objects.",
			},
			"content": map[string]interface{}{
				"type":        "string",
				"description": "Object body for put_object.",
			},
			"file_path": map[string]interface{}{
				"type":        "string",
				"description": "Local file path for upload_file/download_file.",
			},
			"max_keys": map[string]interface{}{
				"type":        "number",
				"description": "Maximum objects to list. Default: 100.",
			},
		},
		"required": []string{"operation"},
	}
}

func (t *S3Tool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	client, err := t.getClient(ctx)
	if err != nil {
		return ErrorResult(fmt.Sprintf("AWS configuration: %v", err))
	}

	operation, _ := args["operation"].(string)
	bucket, _ := args["bucket"].(string)
	key, _ := args["key"].(string)

	switch operation {
	case "list_buckets":
		return t.listBuckets(ctx, client)
	case "list_objects":
		if bucket == "" {
			return ErrorResult("bucket is required")
		}
		return t.listObjects(ctx, client, bucket, args)
	case "get_object":
		if bucket == "" || key == "" {
			return ErrorResult("bucket and key are required")
		}
		return t.getObject(ctx, client, bucket, key)
	case "put_object":
		if bucket == "" || key == "" {
			return ErrorResult("bucket and key are required")
		}
		content, _ := args["content"].(string)
		return t.putObject(ctx, client, bucket, key, content)
	case "upload_file":
		path, _ := args["file_path"].(string)
		if bucket == "" || key == "" || path == "" {
			return ErrorResult("bucket, key and file_path are required")
		}
		return t.uploadFile(ctx, client, bucket, key, path)
	case "download_file":
		path, _ := args["file_path"].(string)
		if bucket == "" || key == "" || path == "" {
			return ErrorResult("bucket, key and file_path are required")
		}
		return t.downloadFile(ctx, client, bucket, key, path)
	case "delete_object":
		if bucket == "" || key == "" {
			return ErrorResult("bucket and key are required")
		}
		return t.deleteObject(ctx, client, bucket, key)
	default:
		return ErrorResult(fmt.Sprintf("unknown operation %q", operation))
	}
}

func (t *S3Tool) getClient(ctx context.Context) (*s3.Client, error) {
	if t.client != nil {
		return t.client, nil
	}
	opts := []func(*awsconfig.LoadOptions) error{}
	if t.region != "" {
		opts = append(opts, awsconfig.WithRegion(t.region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	t.client = s3.NewFromConfig(cfg)
	return t.client, nil
}

func (t *S3Tool) listBuckets(ctx context.Context, client *s3.Client) *Result {
	out, err := client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return ErrorResult(fmt.Sprintf("list buckets: %v", err))
	}
	if len(out.Buckets) == 0 {
		return NewResult("No buckets found.")
	}
	var sb strings.Builder
	for _, b := range out.Buckets {
		fmt.Fprintf(&sb, "%s\t(created %s)\n", aws.ToString(b.Name), b.CreationDate.Format("2006-01-02"))
	}
	return NewResult(sb.String())
}

func (t *S3Tool) listObjects(ctx context.Context, client *s3.Client, bucket string, args map[string]interface{}) *Result {
	maxKeys := int32(100)
	if mk, ok := args["max_keys"].(float64); ok && mk > 0 {
		maxKeys = int32(mk)
	}
	in := &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		MaxKeys: aws.Int32(maxKeys),
	}
	if prefix, ok := args["prefix"].(string); ok && prefix != "" {
		in.Prefix = aws.String(prefix)
	}

	out, err := client.ListObjectsV2(ctx, in)
	if err != nil {
		return ErrorResult(fmt.Sprintf("list objects in %s: %v", bucket, err))
	}
	if len(out.Contents) == 0 {
		return NewResult(fmt.Sprintf("No objects found in %s.", bucket))
	}
	var sb strings.Builder
	for _, obj := range out.Contents {
		fmt.Fprintf(&sb, "%s\t%d bytes\t%s\n",
			aws.ToString(obj.Key), aws.ToInt64(obj.Size), obj.LastModified.Format("2006-01-02 15:04"))
	}
	if aws.ToBool(out.IsTruncated) {
		sb.WriteString("... (more objects, raise max_keys or narrow the prefix)\n")
	}
	return NewResult(sb.String())
}

func (t *S3Tool) getObject(ctx context.Context, client *s3.Client, bucket, key string) *Result {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return ErrorResult(fmt.Sprintf("get s3://%s/%s: %v", bucket, key, err))
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, s3MaxInlineObject+1))
	if err != nil {
		return ErrorResult(fmt.Sprintf("read object body: %v", err))
	}
	if len(data) > s3MaxInlineObject {
		return ErrorResult(fmt.Sprintf("object exceeds %d bytes; use download_file instead", s3MaxInlineObject))
	}
	return NewResult(string(data))
}

func (t *S3Tool) putObject(ctx context.Context, client *s3.Client, bucket, key, content string) *Result {
	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader([]byte(content)),
	})
	if err != nil {
		return ErrorResult(fmt.Sprintf("put s3://%s/%s: %v", bucket, key, err))
	}
	return NewResult(fmt.Sprintf("Wrote %d bytes to s3://%s/%s", len(content), bucket, key))
}

func (t *S3Tool) uploadFile(ctx context.Context, client *s3.Client, bucket, key, path string) *Result {
	f, err := os.Open(path)
	if err != nil {
		return ErrorResult(fmt.Sprintf("open %s: %v", path, err))
	}
	defer f.Close()

	uploader := manager.NewUploader(client)
	if _, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	}); err != nil {
		return ErrorResult(fmt.Sprintf("upload %s to s3://%s/%s: %v", path, bucket, key, err))
	}
	return NewResult(fmt.Sprintf("Uploaded %s to s3://%s/%s", path, bucket, key))
}

func (t *S3Tool) downloadFile(ctx context.Context, client *s3.Client, bucket, key, path string) *Result {
	f, err := os.Create(path)
	if err != nil {
		return ErrorResult(fmt.Sprintf("create %s: %v", path, err))
	}
	defer f.Close()

	downloader := manager.NewDownloader(client)
	n, err := downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		os.Remove(path)
		return ErrorResult(fmt.Sprintf("download s3://%s/%s: %v", bucket, key, err))
	}
	return NewResult(fmt.Sprintf("Downloaded s3://%s/%s to %s (%d bytes)", bucket, key, path, n))
}

func (t *S3Tool) deleteObject(ctx context.Context, client *s3.Client, bucket, key string) *Result {
	_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return ErrorResult(fmt.Sprintf("delete s3://%s/%s: %v", bucket, key, err))
	}
	return NewResult(fmt.Sprintf("Deleted s3://%s/%s", bucket, key))
}
