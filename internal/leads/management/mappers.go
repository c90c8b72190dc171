package management

import (
	"leadcrm_backend/internal/leads/repository"
	"leadcrm_backend/internal/leads/transport"
)

func ToLeadResponse(lead repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:         lead.ID,
		Name:       lead.Name,
		Email:      lead.Email,
		Phone:      lead.Phone,
		Country:    lead.Country,
		Product:    lead.Product,
		Source:     lead.Source,
		Status:     string(lead.Status),
		Value:      lead.Value,
		Notes:      lead.Notes,
		LastCalled: lead.LastCalled,
		ClosedAt:   lead.ClosedAt,
		AssignedTo: lead.AssignedTo,
		CreatedAt:  lead.CreatedAt,
		UpdatedAt:  lead.UpdatedAt,
	}
}

func ToLeadResponses(leads []repository.Lead) []transport.LeadResponse {
	items := make([]transport.LeadResponse, len(leads))
	for i, lead := range leads {
		items[i] = ToLeadResponse(lead)
	}
	return items
}

func ToActivityResponse(a repository.Activity) transport.ActivityResponse {
	return transport.ActivityResponse{
		ID:          a.ID,
		LeadID:      a.LeadID,
		UserID:      a.UserID,
		Type:        string(a.Type),
		Description: a.Description,
		OldStatus:   a.OldStatus,
		NewStatus:   a.NewStatus,
		OldCountry:  a.OldCountry,
		NewCountry:  a.NewCountry,
		CreatedAt:   a.CreatedAt,
	}
}

func ToActivityResponses(items []repository.Activity) []transport.ActivityResponse {
	out := make([]transport.ActivityResponse, len(items))
	for i, a := range items {
		out[i] = ToActivityResponse(a)
	}
	return out
}
