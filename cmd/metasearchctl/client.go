package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type searchRequest struct {
	Query       *string  `json:"query,omitempty"`
	QueryCol    *string  `json:"query_col,omitempty"`
	TopK        *int     `json:"topk,omitempty"`
	ShowColumns []string `json:"show_columns,omitempty"`
}

type homeResponse struct {
	Greeting     string `json:"greeting"`
	CurrentModel string `json:"current_model"`
	HealthCheck  string `json:"health_check"`
}

type columnsResponse struct {
	Columns []struct {
		Name     string `json:"name"`
		Embedded bool   `json:"embedded"`
	} `json:"columns"`
	DefaultColumn string `json:"default_column"`
}

func newClient(apiURL string) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimRight(apiURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(2 * time.Minute)
}

func runSearch(c *resty.Client, req searchRequest, out io.Writer) error {
	if req.Query != nil && strings.TrimSpace(*req.Query) == "" {
		return fmt.Errorf("query cannot be empty")
	}
	resp, err := c.R().SetBody(req).Post("/search")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
	}
	_, err = out.Write(prettyJSON(resp.Body()))
	return err
}

func runInfo(c *resty.Client, out io.Writer) error {
	var home homeResponse
	resp, err := c.R().SetResult(&home).Get("/")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
	}

	var cols columnsResponse
	resp, err = c.R().SetResult(&cols).Get("/columns")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
	}

	fmt.Fprintf(out, "model:  %s\nhealth: %s\n", home.CurrentModel, home.HealthCheck)
	fmt.Fprintf(out, "columns (default %s):\n", cols.DefaultColumn)
	for _, col := range cols.Columns {
		mark := " "
		if col.Embedded {
			mark = "*"
		}
		fmt.Fprintf(out, "  %s %s\n", mark, col.Name)
	}
	return nil
}

// prettyJSON re-indents a JSON document; non-JSON input is returned as-is.
func prettyJSON(data []byte) []byte {
	var v any
	if json.Unmarshal(data, &v) != nil {
		return data
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return data
	}
	return append(b, '\n')
}
