package dto

import "basegraph.app/trigger/internal/trigger"

type WebhookResponse struct {
	Status        string            `json:"status"`
	Outcome       trigger.Outcome   `json:"outcome"`
	Reason        string            `json:"reason,omitempty"`
	Enqueue       string            `json:"enqueue,omitempty"`
	Cause         string            `json:"cause,omitempty"`
	MergeRequests []WebhookResponse `json:"merge_requests,omitempty"`
}

func ToWebhookResponse(r *trigger.Result) WebhookResponse {
	resp := WebhookResponse{
		Status:  "ok",
		Outcome: r.Outcome,
		Reason:  r.Reason,
		Enqueue: string(r.Enqueue),
	}
	if r.Cause != nil {
		resp.Cause = r.Cause.ShortDescription()
	}
	for _, mr := range r.MergeRequests {
		resp.MergeRequests = append(resp.MergeRequests, ToWebhookResponse(mr))
	}
	return resp
}
