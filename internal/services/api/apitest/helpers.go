package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/managedsolutions7/k2weighingfe-sub000/internal/models"
)

// respondData sends a success envelope
func respondData(w http.ResponseWriter, status int, data any) {
	respondJSON(w, status, map[string]any{"success": true, "data": data})
}

// respondError sends a failure envelope
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"success": false, "message": message})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func contextWithClaims(r *http.Request, claims jwt.MapClaims) context.Context {
	return context.WithValue(r.Context(), claimsKey, claims)
}

func canWeigh(r *http.Request) bool {
	claims, _ := r.Context().Value(claimsKey).(jwt.MapClaims)
	role, _ := claims["role"].(string)
	return models.Role(role).CanWeigh()
}

func parseBool(raw string) *bool {
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &b
}

func parseTime(raw string) *time.Time {
	t, err := time.Parse(models.ISOLayout, raw)
	if err != nil {
		return nil
	}
	return &t
}

func (s *Server) indexOf(id string) int {
	for i, e := range s.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (s *Server) knownVendor(id string) bool {
	for _, v := range s.vendors {
		if v.ID == id {
			return true
		}
	}
	return false
}

func (s *Server) knownVehicle(id string) bool {
	for _, v := range s.vehicles {
		if v.ID == id {
			return true
		}
	}
	return false
}

// expand resolves the entry's references to populated refs. Caller holds s.mu.
func (s *Server) expand(e models.Entry) models.Entry {
	for _, v := range s.vendors {
		if v.ID == e.Vendor.ID {
			e.Vendor = models.Expanded(v.ID, map[string]string{"name": v.Name, "vendorCode": v.Code})
		}
	}
	for _, v := range s.vehicles {
		if v.ID == e.Vehicle.ID {
			e.Vehicle = models.Expanded(v.ID, map[string]string{"vehicleNumber": v.VehicleNumber})
		}
	}
	if e.MaterialType != nil {
		for _, m := range s.materials {
			if m.ID == e.MaterialType.ID {
				ref := models.Expanded(m.ID, map[string]string{"name": m.Name, "code": m.Code})
				e.MaterialType = &ref
			}
		}
	}
	return e
}

// entryView renders an entry the way a document store does: "_id" and populated refs.
// Caller holds s.mu.
func (s *Server) entryView(e models.Entry) map[string]any {
	e = s.expand(e)

	raw, _ := json.Marshal(e)
	view := map[string]any{}
	_ = json.Unmarshal(raw, &view)

	view["_id"] = e.ID
	delete(view, "id")
	view["vendor"] = refView(e.Vendor)
	view["vehicle"] = refView(e.Vehicle)
	if e.MaterialType != nil {
		view["materialType"] = refView(*e.MaterialType)
	}
	return view
}

func refView(r models.Ref) map[string]string {
	out := map[string]string{"_id": r.ID}
	for k, v := range r.Fields {
		out[k] = v
	}
	return out
}

func filterOptions[T any](items []T, search string, text func(T) string) []T {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]T, 0, len(items))
	for _, it := range items {
		if needle == "" || strings.Contains(strings.ToLower(text(it)), needle) {
			out = append(out, it)
		}
	}
	return out
}
