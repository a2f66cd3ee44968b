package activity

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"api/internal/configuration"
	"api/internal/models"

	"github.com/go-resty/resty/v2"
)

// LokiClient implements IActivityLogger against a Loki instance. Entries are
// pushed as JSON log lines with the filter fields as stream labels.
type LokiClient struct {
	client   *resty.Client
	endpoint string
}

func NewLokiClient(config models.ActivityConfiguration) IActivityLogger {
	return &LokiClient{
		client:   resty.New().SetTimeout(10 * time.Second),
		endpoint: strings.TrimSuffix(config.Loki.Endpoint, "/"),
	}
}

type lokiPushRequest struct {
	Streams []lokiStream `json:"streams"`
}

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

type lokiQueryResponse struct {
	Data struct {
		Result []struct {
			Stream map[string]string `json:"stream"`
			Values [][]string        `json:"values"`
		} `json:"result"`
	} `json:"data"`
}

func (c *LokiClient) Send(activity models.Activity) error {
	timestamp := activity.Filter["timestamp"]
	if timestamp == "" {
		timestamp = strconv.FormatInt(time.Now().UnixNano(), 10)
	}

	labels := map[string]string{"app": configuration.AppName}
	for key, value := range activity.Filter {
		if key != "timestamp" && value != "" {
			labels[key] = value
		}
	}

	line, err := json.Marshal(map[string]any{
		"message": activity.Message,
		"object":  activity.Object,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal activity line: %w", err)
	}

	body := lokiPushRequest{
		Streams: []lokiStream{{
			Stream: labels,
			Values: [][]string{{timestamp, string(line)}},
		}},
	}

	resp, err := c.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(c.endpoint + "/loki/api/v1/push")
	if err != nil {
		return fmt.Errorf("failed to push activity to loki: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("loki push failed with status %d: %s", resp.StatusCode(), resp.String())
	}

	return nil
}

func (c *LokiClient) Search(searchCriteria map[string][]string) ([]map[string]any, error) {
	now := time.Now()

	resp, err := c.client.R().
		SetQueryParams(map[string]string{
			"query": buildLogQLQuery(searchCriteria),
			"start": strconv.FormatInt(now.AddDate(0, 0, -30).UnixNano(), 10),
			"end":   strconv.FormatInt(now.UnixNano(), 10),
			"limit": "100",
		}).
		Get(c.endpoint + "/loki/api/v1/query_range")
	if err != nil {
		return nil, fmt.Errorf("failed to query loki: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("loki query failed with status %d: %s", resp.StatusCode(), resp.String())
	}

	var parsed lokiQueryResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode loki response: %w", err)
	}

	var activities []map[string]any
	for _, result := range parsed.Data.Result {
		for _, value := range result.Values {
			if len(value) != 2 {
				continue
			}
			entry := map[string]any{"timestamp": value[0]}
			for k, v := range result.Stream {
				entry[k] = v
			}
			var line map[string]any
			if json.Unmarshal([]byte(value[1]), &line) == nil {
				if message, ok := line["message"]; ok {
					entry["message"] = message
				}
				if object, ok := line["object"]; ok && object != nil {
					entry["object"] = object
				}
			}
			activities = append(activities, entry)
		}
	}

	return activities, nil
}

func (c *LokiClient) CountByDay(searchCriteria map[string][]string, days int) ([]models.TimeSeriesPoint, error) {
	entries, err := c.Search(searchCriteria)
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	cutoff := time.Now().AddDate(0, 0, -days)
	for _, entry := range entries {
		raw, _ := entry["timestamp"].(string)
		ns, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			continue
		}
		ts := time.Unix(0, ns)
		if ts.Before(cutoff) {
			continue
		}
		counts[ts.Format("2006-01-02")]++
	}

	points := make([]models.TimeSeriesPoint, 0, len(counts))
	for i := days; i >= 0; i-- {
		day := time.Now().AddDate(0, 0, -i).Format("2006-01-02")
		if count, ok := counts[day]; ok {
			points = append(points, models.TimeSeriesPoint{Date: day, Count: count})
		}
	}

	return points, nil
}

func (c *LokiClient) Close() error {
	return nil
}

func buildLogQLQuery(searchCriteria map[string][]string) string {
	selectors := []string{fmt.Sprintf("app=%q", configuration.AppName)}
	for key, values := range searchCriteria {
		if len(values) == 1 {
			selectors = append(selectors, fmt.Sprintf(`%s=%q`, key, values[0]))
		} else if len(values) > 1 {
			selectors = append(selectors, fmt.Sprintf(`%s=~%q`, key, strings.Join(values, "|")))
		}
	}
	return "{" + strings.Join(selectors, ",") + "}"
}
