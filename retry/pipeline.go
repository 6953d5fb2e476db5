package retry

import (
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
)

type pipelinePolicy struct {
	p *Policy
}

// PipelinePolicy adapts p to an azcore pipeline policy.
//
// Install it as a per-call policy and disable the pipeline's own retries
// (policy.RetryOptions{MaxRetries: -1}), so that authentication and transport
// policies run once per attempt.
func (p *Policy) PipelinePolicy() policy.Policy {
	return pipelinePolicy{p: p}
}

func (pp pipelinePolicy) Do(req *policy.Request) (*http.Response, error) {
	attempt := 0

	return pp.p.Do(req.Raw(), func(r *http.Request) (*http.Response, error) {
		attempt++

		if attempt > 1 {
			if err := req.RewindBody(); err != nil {
				return nil, err
			}
		}

		clone := req.Clone(r.Context())
		clone.Raw().URL = r.URL
		clone.Raw().Host = r.Host

		return clone.Next()
	})
}
