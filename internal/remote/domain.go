// Package remote verifies the remote OpenSearch domain during Phase A:
// credentials resolve, the domain exists, is not deleted or still
// processing, and has a reachable endpoint.
package remote

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/opensearch"

	"github.com/edgesoc/ids2-supervisor/internal/apperrors"
	"github.com/edgesoc/ids2-supervisor/internal/config"
)

// DomainVerifier checks the remote cluster's management API. The production
// implementation is backed by the AWS OpenSearch service client; tests
// substitute a fake.
type DomainVerifier interface {
	VerifyDomain(ctx context.Context) (endpoint string, err error)
}

// sdkVerifier is the production DomainVerifier.
type sdkVerifier struct {
	remote config.RemoteConfig
}

// NewVerifier constructs a DomainVerifier against the configured AWS region,
// credential profile, and cluster identifier.
func NewVerifier(remote config.RemoteConfig) DomainVerifier {
	return &sdkVerifier{remote: remote}
}

// VerifyDomain calls DescribeDomain and applies the same not-deleted,
// not-processing, has-endpoint checks as the original aws_manager's
// verify_domain_exists/get_domain_endpoint.
func (v *sdkVerifier) VerifyDomain(ctx context.Context) (string, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(v.remote.Region)}
	if v.remote.CredentialProfile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(v.remote.CredentialProfile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: load AWS config: %v", apperrors.ErrRemoteUnavailable, err)
	}

	client := opensearch.NewFromConfig(cfg)
	out, err := client.DescribeDomain(ctx, &opensearch.DescribeDomainInput{
		DomainName: &v.remote.ClusterID,
	})
	if err != nil {
		return "", fmt.Errorf("%w: describe domain %s: %v", apperrors.ErrRemoteUnavailable, v.remote.ClusterID, err)
	}

	status := out.DomainStatus
	if status == nil {
		return "", fmt.Errorf("%w: domain %s returned no status", apperrors.ErrRemoteUnavailable, v.remote.ClusterID)
	}
	if status.Deleted != nil && *status.Deleted {
		return "", fmt.Errorf("%w: domain %s is deleted", apperrors.ErrRemoteUnavailable, v.remote.ClusterID)
	}
	if status.Processing != nil && *status.Processing {
		return "", fmt.Errorf("%w: domain %s is still processing", apperrors.ErrRemoteUnavailable, v.remote.ClusterID)
	}
	if status.Created != nil && !*status.Created {
		return "", fmt.Errorf("%w: domain %s is not fully created", apperrors.ErrRemoteUnavailable, v.remote.ClusterID)
	}
	if status.Endpoint == nil || *status.Endpoint == "" {
		return "", fmt.Errorf("%w: domain %s has no endpoint", apperrors.ErrRemoteUnavailable, v.remote.ClusterID)
	}

	return "https://" + *status.Endpoint, nil
}
