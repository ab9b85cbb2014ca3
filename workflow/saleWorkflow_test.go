package workflow_test

import (
	"encoding/json"
	"testing"

	"bitbucket.org/mmdatafocus/shopledger_backend/workflow"
)

func TestSaleResultWireKeys(t *testing.T) {
	body, err := json.Marshal(&workflow.SaleResult{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := payload["sale"]; !ok {
		t.Errorf("sale result envelope %s is missing the %q key", body, "sale")
	}
	if _, ok := payload["invoice"]; !ok {
		t.Errorf("sale result envelope %s is missing the %q key", body, "invoice")
	}
}
