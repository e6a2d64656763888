package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

const (
	defaultAPIBase = "http://localhost:8080"
	smokeProfile   = `{"gender":"female","weight":62,"height":168,"age":29,"days":3,"diet":"vegetarian"}`
)

var (
	apiBase    string
	token      string
	client     = &http.Client{Timeout: 60 * time.Second}
	cartItems  = make(map[string]int)
	createdIDs = make(map[string]string) // track created resources for cleanup
)

func main() {
	fmt.Println("=== NutriCart E2E Smoke Test ===")
	fmt.Println()

	apiBase = getEnv("API_BASE_URL", defaultAPIBase)
	fmt.Printf("API Base: %s\n", apiBase)
	fmt.Println()

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Healthz", testHealthz},
		{"Create Session", testCreateSession},
		{"Get Targets", testGetTargets},
		{"List Products", testListProducts},
		{"Cart Nutrients", testCartNutrients},
		{"Suggestion", testSuggestion},
		{"Create Report (CSV)", testCreateReport},
		{"List Reports", testListReports},
		{"Download Report", testDownloadReport},
		{"Delete Report", testDeleteReport},
		{"Delete Session", testDeleteSession},
	}

	failed := false
	for i, step := range steps {
		fmt.Printf("[%d/%d] %s... ", i+1, len(steps), step.name)
		if err := step.fn(); err != nil {
			fmt.Printf("❌ FAILED\n")
			fmt.Printf("  Error: %v\n\n", err)
			failed = true
			break
		}
		fmt.Printf("✅ OK\n")
	}

	fmt.Println()
	if failed {
		fmt.Println("❌ SMOKE TEST FAILED")
		os.Exit(1)
	}

	fmt.Println("✅ ALL SMOKE TESTS PASSED")
}

func testHealthz() error {
	var result struct {
		Status   string `json:"status"`
		Products int    `json:"products"`
	}
	if err := call("GET", "/healthz", nil, http.StatusOK, &result); err != nil {
		return err
	}
	if result.Products == 0 {
		return fmt.Errorf("catalog is empty")
	}
	return nil
}

func testCreateSession() error {
	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := call("POST", "/v1/session", []byte(smokeProfile), http.StatusCreated, &result); err != nil {
		return err
	}
	if result.AccessToken == "" {
		return fmt.Errorf("empty access_token")
	}
	token = result.AccessToken
	return nil
}

func testGetTargets() error {
	var result struct {
		Targets struct {
			Calories float64 `json:"Calories"`
		} `json:"targets"`
	}
	if err := call("GET", "/v1/nutrition/targets", nil, http.StatusOK, &result); err != nil {
		return err
	}
	if result.Targets.Calories <= 0 {
		return fmt.Errorf("calories target is %v", result.Targets.Calories)
	}
	return nil
}

func testListProducts() error {
	var result struct {
		Products []struct {
			Code int `json:"code"`
		} `json:"products"`
	}
	if err := call("GET", "/v1/products", nil, http.StatusOK, &result); err != nil {
		return err
	}
	if len(result.Products) == 0 {
		return fmt.Errorf("no products for the session diet")
	}

	// пара товаров из каталога в корзину
	for i, p := range result.Products {
		if i == 2 {
			break
		}
		cartItems[strconv.Itoa(p.Code)] = 1
	}
	return nil
}

func testCartNutrients() error {
	body, _ := json.Marshal(map[string]interface{}{"items": cartItems})
	var result struct {
		Items        []json.RawMessage `json:"items"`
		UnknownCodes []int             `json:"unknown_codes"`
	}
	if err := call("POST", "/v1/cart/nutrients", body, http.StatusOK, &result); err != nil {
		return err
	}
	if len(result.UnknownCodes) > 0 || len(result.Items) != len(cartItems) {
		return fmt.Errorf("cart lines mismatch: items=%d unknown=%v", len(result.Items), result.UnknownCodes)
	}
	return nil
}

func testSuggestion() error {
	body, _ := json.Marshal(map[string]interface{}{"items": cartItems})
	var result struct {
		Kind string `json:"kind"`
	}
	if err := call("POST", "/v1/suggestions", body, http.StatusOK, &result); err != nil {
		return err
	}
	if result.Kind != "Add" && result.Kind != "Remove" {
		return fmt.Errorf("unexpected kind %q", result.Kind)
	}
	return nil
}

func testCreateReport() error {
	body, _ := json.Marshal(map[string]interface{}{
		"items":  cartItems,
		"format": "csv",
	})
	var result struct {
		ID string `json:"id"`
	}
	if err := call("POST", "/v1/reports", body, http.StatusCreated, &result); err != nil {
		return err
	}
	if result.ID == "" {
		return fmt.Errorf("empty report id")
	}
	createdIDs["report"] = result.ID
	return nil
}

func testListReports() error {
	var result struct {
		Reports []struct {
			ID string `json:"id"`
		} `json:"reports"`
	}
	if err := call("GET", "/v1/reports", nil, http.StatusOK, &result); err != nil {
		return err
	}
	for _, r := range result.Reports {
		if r.ID == createdIDs["report"] {
			return nil
		}
	}
	return fmt.Errorf("report %s not listed", createdIDs["report"])
}

func testDownloadReport() error {
	reportID := createdIDs["report"]
	if reportID == "" {
		return fmt.Errorf("no report ID to download")
	}

	// в режиме S3 клиент сам идёт по редиректу на presigned URL
	req, err := http.NewRequest("GET", fmt.Sprintf("%s/v1/reports/%s/download", apiBase, reportID), nil)
	if err != nil {
		return err
	}
	addAuth(req)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, truncate(data))
	}
	if !bytes.HasPrefix(data, []byte("section,")) {
		return fmt.Errorf("unexpected report body: %s", truncate(data))
	}
	return nil
}

func testDeleteReport() error {
	reportID := createdIDs["report"]
	if reportID == "" {
		return fmt.Errorf("no report ID to delete")
	}
	return call("DELETE", "/v1/reports/"+reportID, nil, http.StatusNoContent, nil)
}

func testDeleteSession() error {
	return call("DELETE", "/v1/session", nil, http.StatusNoContent, nil)
}

// Helper functions

func call(method, path string, body []byte, wantStatus int, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, apiBase+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	addAuth(req)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode failed: %w", err)
		}
	}
	return nil
}

func addAuth(req *http.Request) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func truncate(b []byte) string {
	if len(b) > 200 {
		return string(b[:200]) + "..."
	}
	return string(b)
}
