package client

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	bedrockTypes "github.com/aws/aws-sdk-go-v2/service/bedrock/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwTypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/servicequotas"
	sqTypes "github.com/aws/aws-sdk-go-v2/service/servicequotas/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	maxRetryAttempts = 10

	bedrockNamespace = "AWS/Bedrock"
	modelIDDimension = "ModelId"

	// ServiceQuotas service code for Bedrock quotas.
	bedrockServiceCode = "bedrock"

	// CloudWatch label timezone, pinned to UTC so timestamps line up across
	// profiles regardless of where the analyzer runs.
	labelTimezone = "+0000"

	listProfilesPageSize = 1000
)

type Option func(options *[]func(options *awsconfig.LoadOptions) error)

func WithRegion(region string) Option {
	return func(options *[]func(options *awsconfig.LoadOptions) error) {
		if region == "" {
			return
		}
		*options = append(*options, awsconfig.WithRegion(region))
	}
}

func WithProfile(profile string) Option {
	return func(options *[]func(options *awsconfig.LoadOptions) error) {
		if profile == "" {
			return
		}
		*options = append(*options, awsconfig.WithSharedConfigProfile(profile))
	}
}

func WithRoleARN(roleARN string) Option {
	return func(options *[]func(options *awsconfig.LoadOptions) error) {
		if roleARN == "" {
			return
		}
		option, err := assumeRole(roleARN, *options)
		if err != nil {
			return
		}

		*options = append(*options, option)
	}
}

type Config struct {
	Region  string
	Profile string
	RoleARN string
}

type AWSClient struct {
	metricsService *cloudwatch.Client
	bedrockService *bedrock.Client
	quotaService   *servicequotas.Client
	stsService     *sts.Client
	metrics        *Metrics
}

func NewAWSClient(ctx context.Context, opts ...Option) (*AWSClient, error) {
	optionsFunc := make([]func(options *awsconfig.LoadOptions) error, 0)
	optionsFunc = append(optionsFunc, awsconfig.WithEC2IMDSRegion())
	optionsFunc = append(optionsFunc, awsconfig.WithRetryMaxAttempts(maxRetryAttempts))

	for _, opt := range opts {
		opt(&optionsFunc)
	}

	ac, err := awsconfig.LoadDefaultConfig(ctx, optionsFunc...)
	if err != nil {
		return nil, err
	}

	return &AWSClient{
		metricsService: cloudwatch.NewFromConfig(ac),
		bedrockService: bedrock.NewFromConfig(ac),
		quotaService:   servicequotas.NewFromConfig(ac),
		stsService:     sts.NewFromConfig(ac),
		metrics:        NewMetrics(),
	}, nil
}

func (c *AWSClient) Metrics() []prometheus.Collector {
	return []prometheus.Collector{c.metrics.RequestCount, c.metrics.RequestErrorsCount}
}

// AccountID resolves the AWS account the analyzer is running against.
func (c *AWSClient) AccountID(ctx context.Context) (string, error) {
	c.metrics.RequestCount.WithLabelValues("GetCallerIdentity").Inc()
	out, err := c.stsService.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		c.metrics.RequestErrorsCount.WithLabelValues("GetCallerIdentity").Inc()
		return "", fmt.Errorf("resolving caller identity: %w", err)
	}
	return aws.ToString(out.Account), nil
}

// GetBedrockMetricData fetches all AWS/Bedrock metrics for one ModelId over
// [start, end] at the given period. The caller is responsible for keeping the
// range under the CloudWatch datapoint limit; pagination is still followed in
// case CloudWatch splits the response.
func (c *AWSClient) GetBedrockMetricData(ctx context.Context, modelID string, start, end time.Time, period int32) (*MetricBatch, error) {
	queries := make([]cwTypes.MetricDataQuery, 0, len(MetricIDs))
	for _, id := range MetricIDs {
		queries = append(queries, metricQuery(id, modelID, period))
	}

	batch := &MetricBatch{Data: make(map[string][]float64, len(MetricIDs))}

	var nextToken *string
	for {
		c.metrics.RequestCount.WithLabelValues("GetMetricData").Inc()
		out, err := c.metricsService.GetMetricData(ctx, &cloudwatch.GetMetricDataInput{
			MetricDataQueries: queries,
			StartTime:         aws.Time(start),
			EndTime:           aws.Time(end),
			LabelOptions:      &cwTypes.LabelOptions{Timezone: aws.String(labelTimezone)},
			NextToken:         nextToken,
		})
		if err != nil {
			c.metrics.RequestErrorsCount.WithLabelValues("GetMetricData").Inc()
			return nil, fmt.Errorf("fetching metric data for %s: %w", modelID, err)
		}

		appendMetricPage(batch, out.MetricDataResults)

		nextToken = out.NextToken
		if nextToken == nil {
			break
		}
	}

	return batch, nil
}

// ResolveInferenceProfile looks up a system inference profile by its profile
// ID (e.g. "us.anthropic.claude-3-5-haiku-20241022-v1:0"). Returns nil when
// the profile does not exist in the region.
func (c *AWSClient) ResolveInferenceProfile(ctx context.Context, profileID string) (*bedrockTypes.InferenceProfileSummary, error) {
	var nextToken *string
	for {
		c.metrics.RequestCount.WithLabelValues("ListInferenceProfiles").Inc()
		out, err := c.bedrockService.ListInferenceProfiles(ctx, &bedrock.ListInferenceProfilesInput{
			MaxResults: aws.Int32(listProfilesPageSize),
			NextToken:  nextToken,
		})
		if err != nil {
			c.metrics.RequestErrorsCount.WithLabelValues("ListInferenceProfiles").Inc()
			return nil, fmt.Errorf("listing inference profiles: %w", err)
		}

		for _, summary := range out.InferenceProfileSummaries {
			if aws.ToString(summary.InferenceProfileId) == profileID {
				return &summary, nil
			}
		}

		nextToken = out.NextToken
		if nextToken == nil {
			return nil, nil
		}
	}
}

// GetServiceQuota fetches the applied value of one Bedrock quota code.
func (c *AWSClient) GetServiceQuota(ctx context.Context, quotaCode string) (*sqTypes.ServiceQuota, error) {
	c.metrics.RequestCount.WithLabelValues("GetServiceQuota").Inc()
	out, err := c.quotaService.GetServiceQuota(ctx, &servicequotas.GetServiceQuotaInput{
		ServiceCode: aws.String(bedrockServiceCode),
		QuotaCode:   aws.String(quotaCode),
	})
	if err != nil {
		c.metrics.RequestErrorsCount.WithLabelValues("GetServiceQuota").Inc()
		return nil, fmt.Errorf("fetching quota %s: %w", quotaCode, err)
	}
	return out.Quota, nil
}

// appendMetricPage merges one GetMetricData page into the batch. Timestamps
// come from the first query that returned data on the page; CloudWatch
// returns the same grid for every query, but each page carries its own slice
// of that grid, so collection restarts on every page. Taking the flag from
// the accumulated batch instead would drop the timestamps of every page
// after the first while still appending their values.
func appendMetricPage(batch *MetricBatch, results []cwTypes.MetricDataResult) {
	timestampsCollected := false
	for _, result := range results {
		if len(result.Values) == 0 {
			continue
		}
		id := aws.ToString(result.Id)
		batch.Data[id] = append(batch.Data[id], result.Values...)
		if !timestampsCollected && len(result.Timestamps) > 0 {
			batch.Timestamps = append(batch.Timestamps, result.Timestamps...)
			timestampsCollected = true
		}
	}
}

func metricQuery(id, modelID string, period int32) cwTypes.MetricDataQuery {
	stat := "Sum"
	metricName := metricNameForID(id)
	if id == MetricLatency {
		stat = "Average"
	}
	return cwTypes.MetricDataQuery{
		Id: aws.String(id),
		MetricStat: &cwTypes.MetricStat{
			Metric: &cwTypes.Metric{
				Namespace:  aws.String(bedrockNamespace),
				MetricName: aws.String(metricName),
				Dimensions: []cwTypes.Dimension{
					{Name: aws.String(modelIDDimension), Value: aws.String(modelID)},
				},
			},
			Period: aws.Int32(period),
			Stat:   aws.String(stat),
		},
	}
}

func metricNameForID(id string) string {
	switch id {
	case MetricInvocations:
		return "Invocations"
	case MetricInputTokens:
		return "InputTokenCount"
	case MetricOutputTokens:
		return "OutputTokenCount"
	case MetricThrottles:
		return "InvocationThrottles"
	case MetricClientErrors:
		return "InvocationClientErrors"
	case MetricServerErrors:
		return "InvocationServerErrors"
	case MetricLatency:
		return "InvocationLatency"
	}
	return id
}

func assumeRole(roleARN string, options []func(*awsconfig.LoadOptions) error) (awsconfig.LoadOptionsFunc, error) {
	// Add the credentials to assume the role specified in config.RoleARN
	ac, err := awsconfig.LoadDefaultConfig(context.Background(), options...)
	if err != nil {
		return nil, err
	}

	stsService := sts.NewFromConfig(ac)

	return awsconfig.WithCredentialsProvider(
		aws.NewCredentialsCache(
			stscreds.NewAssumeRoleProvider(
				stsService,
				roleARN,
			),
		),
	), nil
}
