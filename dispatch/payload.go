package dispatch

import (
	"math"
	"strings"
)

const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// ValidStatus reports whether s is a deliverable status.
func ValidStatus(s string) bool {
	return s == StatusActive || s == StatusCompleted
}

// StatusPayload is the single-status delivery body.
type StatusPayload struct {
	Status          string `json:"status"`
	ManufacturingID string `json:"manufacturing_id,omitempty"`
	SKU             string `json:"sku,omitempty"`
	TargetQty       int    `json:"target_qty"`
}

// ListPayload is the bulk MO list delivery body.
type ListPayload struct {
	MOList []ListItem `json:"mo_list"`
}

type ListItem struct {
	MO        string `json:"mo"`
	SKU       string `json:"sku"`
	TargetQty int    `json:"target_qty"`
}

// TargetQty truncates a nullable ERP quantity toward zero.
func TargetQty(q *float64) int {
	if q == nil || math.IsNaN(*q) || math.IsInf(*q, 0) {
		return 0
	}
	return int(math.Trunc(*q))
}

// PageList splits items into payloads of at most size items each.
func PageList(items []ListItem, size int) []ListPayload {
	if size <= 0 {
		size = len(items)
	}
	var pages []ListPayload
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		pages = append(pages, ListPayload{MOList: items[start:end]})
	}
	return pages
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
