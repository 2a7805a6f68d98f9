package prober

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/edgesoc/ids2-supervisor/internal/apperrors"
	"github.com/edgesoc/ids2-supervisor/internal/config"
)

// testBulkBody is a minimal, self-contained bulk request used purely to
// verify the ingest path is reachable and authenticated; it targets a
// throwaway "test" index and is never meant to persist data.
const testBulkBody = "{\"index\":{\"_index\":\"test\"}}\n{\"test\":\"connectivity\"}\n"

// sigV4BulkProber signs and sends the connectivity test bulk request using
// AWS SigV4, the same scheme the log shipper's bulk ingest path uses
// against the managed OpenSearch domain.
type sigV4BulkProber struct {
	region  string
	profile string
	httpc   *http.Client
	signer  *v4.Signer
}

func newSigV4BulkProber(remote config.RemoteConfig) *sigV4BulkProber {
	timeout := remote.BulkTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &sigV4BulkProber{
		region:  remote.Region,
		profile: remote.CredentialProfile,
		httpc:   &http.Client{Timeout: timeout},
		signer:  v4.NewSigner(),
	}
}

func (b *sigV4BulkProber) ProbeBulk(ctx context.Context, endpoint string) error {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(b.region))
	if b.profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(b.profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("%w: load aws credentials: %v", apperrors.ErrProbeFailed, err)
	}

	creds, err := awsCfg.Credentials.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("%w: retrieve aws credentials: %v", apperrors.ErrProbeFailed, err)
	}

	url := strings.TrimRight(endpoint, "/") + "/_bulk"
	body := testBulkBody

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build bulk request: %v", apperrors.ErrProbeFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-ndjson")

	payloadHash := sha256Hex(body)
	if err := b.signer.SignHTTP(ctx, creds, req, payloadHash, "es", b.region, time.Now()); err != nil {
		return fmt.Errorf("%w: sign bulk request: %v", apperrors.ErrProbeFailed, err)
	}

	resp, err := b.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: bulk request failed: %v", apperrors.ErrProbeFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%w: bulk probe returned HTTP %d", apperrors.ErrProbeFailed, resp.StatusCode)
	}
	return nil
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
