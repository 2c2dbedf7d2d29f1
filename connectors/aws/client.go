package aws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"cost-dashboard/domain/costsummary"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/aws/smithy-go"
)

const (
	DefaultRegion = "us-east-1"
	metric        = "UnblendedCost"
)

// CostExplorerAPI is the subset of the Cost Explorer client used here.
type CostExplorerAPI interface {
	GetCostAndUsage(ctx context.Context, in *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error)
}

// Client handles AWS Cost Explorer requests
type Client struct {
	api CostExplorerAPI
}

// NewClient creates a Cost Explorer client from static credentials.
func NewClient(ctx context.Context, accessKeyID, secretAccessKey, region string) (*Client, error) {
	if region == "" {
		region = DefaultRegion
	}
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return &Client{api: costexplorer.NewFromConfig(cfg)}, nil
}

// NewWithAPI wraps an existing Cost Explorer implementation.
func NewWithAPI(api CostExplorerAPI) *Client {
	return &Client{api: api}
}

// FetchCosts returns daily unblended cost grouped by service for [start, end),
// following NextPageToken until every page is read.
func (c *Client) FetchCosts(ctx context.Context, start, end string) ([]types.ResultByTime, error) {
	in := &costexplorer.GetCostAndUsageInput{
		TimePeriod:  &types.DateInterval{Start: awssdk.String(start), End: awssdk.String(end)},
		Granularity: types.GranularityDaily,
		Metrics:     []string{metric},
		GroupBy: []types.GroupDefinition{
			{Type: types.GroupDefinitionTypeDimension, Key: awssdk.String("SERVICE")},
		},
	}

	var results []types.ResultByTime
	for page := 1; ; page++ {
		out, err := c.api.GetCostAndUsage(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("failed to get cost and usage: %w", err)
		}
		results = append(results, out.ResultsByTime...)
		slog.Debug("aws.costs.page", "page", page, "results", len(out.ResultsByTime))
		if out.NextPageToken == nil || *out.NextPageToken == "" {
			break
		}
		in.NextPageToken = out.NextPageToken
	}
	return results, nil
}

// Summarize reduces Cost Explorer results to a cost summary. When start or end are
// empty the range of the results is used instead.
func Summarize(results []types.ResultByTime, start, end string) *costsummary.CostSummary {
	if len(results) > 0 {
		if start == "" {
			start = awssdk.ToString(results[0].TimePeriod.Start)
		}
		if end == "" {
			end = awssdk.ToString(results[len(results)-1].TimePeriod.End)
		}
	}
	s := costsummary.New(start, end)
	for _, r := range results {
		if r.TimePeriod == nil {
			continue
		}
		date := awssdk.ToString(r.TimePeriod.Start)
		for _, g := range r.Groups {
			mv, ok := g.Metrics[metric]
			if len(g.Keys) == 0 || !ok {
				continue
			}
			amount, err := strconv.ParseFloat(awssdk.ToString(mv.Amount), 64)
			if err != nil {
				continue
			}
			s.Add(date, g.Keys[0], amount, awssdk.ToString(mv.Unit))
		}
	}
	return s
}

// DescribeError maps a Cost Explorer failure to the HTTP status and JSON body returned to callers.
func DescribeError(err error) (int, map[string]any) {
	var apiErr smithy.APIError
	code := ""
	if errors.As(err, &apiErr) {
		code = apiErr.ErrorCode()
	}
	switch code {
	case "InvalidAccessKeyId", "UnrecognizedClientException":
		return http.StatusUnauthorized, map[string]any{
			"error": "Invalid AWS credentials. Please check your Access Key ID and Secret Access Key.",
		}
	case "AccessDeniedException":
		return http.StatusForbidden, map[string]any{
			"error": "Insufficient permissions. Please ensure your AWS credentials have ce:GetCostAndUsage permissions.",
		}
	case "ThrottlingException":
		return http.StatusTooManyRequests, map[string]any{
			"error": "AWS API rate limit exceeded. Please wait a moment and try again.",
		}
	}

	status := http.StatusInternalServerError
	requestID := ""
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		if s := respErr.HTTPStatusCode(); s != 0 {
			status = s
		}
		requestID = respErr.ServiceRequestID()
	}
	msg := err.Error()
	if apiErr != nil {
		msg = apiErr.ErrorMessage()
	}
	return status, map[string]any{"error": msg, "code": code, "requestId": requestID}
}
