package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"telefy/internal/config"
)

const defaultBaseURL = "https://api.x.com"

// XClient is a minimal X API v2 client using bearer-token auth. It covers
// exactly what the poster needs: create a post, reply to one, and poll the
// account's mentions.
type XClient struct {
	baseURL string
	bearer  string
	userID  string
	poll    time.Duration
	client  *http.Client
}

// NewXClient builds a client from the social config.
func NewXClient(cfg config.SocialConfig) *XClient {
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 2 * time.Minute
	}
	return &XClient{
		baseURL: defaultBaseURL,
		bearer:  cfg.BearerToken,
		userID:  cfg.UserID,
		poll:    poll,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type tweetRequest struct {
	Text  string      `json:"text"`
	Reply *tweetReply `json:"reply,omitempty"`
}

type tweetReply struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

type tweetResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Post publishes a new post and returns its id.
func (c *XClient) Post(ctx context.Context, text string) (string, error) {
	return c.createTweet(ctx, tweetRequest{Text: text})
}

// Reply publishes text as a reply to postID.
func (c *XClient) Reply(ctx context.Context, text, postID string) error {
	_, err := c.createTweet(ctx, tweetRequest{
		Text:  text,
		Reply: &tweetReply{InReplyToTweetID: postID},
	})
	return err
}

func (c *XClient) createTweet(ctx context.Context, tr tweetRequest) (string, error) {
	body, err := json.Marshal(tr)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.bearer)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("post tweet: status %d: %s", resp.StatusCode, b)
	}

	var out tweetResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode tweet response: %w", err)
	}
	return out.Data.ID, nil
}

type mentionsResponse struct {
	Data []struct {
		ID       string `json:"id"`
		Text     string `json:"text"`
		AuthorID string `json:"author_id"`
	} `json:"data"`
	Meta struct {
		NewestID string `json:"newest_id"`
	} `json:"meta"`
}

// Mentions polls the mentions timeline and emits each new mention once.
func (c *XClient) Mentions(ctx context.Context) <-chan Mention {
	out := make(chan Mention)
	go func() {
		defer close(out)
		if c.userID == "" {
			log.Println("[social] no user id configured, mention polling disabled")
			return
		}

		ticker := time.NewTicker(c.poll)
		defer ticker.Stop()

		var sinceID string
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			mentions, newest, err := c.fetchMentions(ctx, sinceID)
			if err != nil {
				log.Printf("[social] fetch mentions: %v", err)
				continue
			}
			if newest != "" {
				sinceID = newest
			}
			for _, m := range mentions {
				select {
				case out <- m:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (c *XClient) fetchMentions(ctx context.Context, sinceID string) ([]Mention, string, error) {
	q := url.Values{}
	q.Set("tweet.fields", "author_id")
	if sinceID != "" {
		q.Set("since_id", sinceID)
	}

	u := fmt.Sprintf("%s/2/users/%s/mentions?%s", c.baseURL, c.userID, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.bearer)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, "", fmt.Errorf("fetch mentions: status %d: %s", resp.StatusCode, b)
	}

	var mr mentionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, "", fmt.Errorf("decode mentions: %w", err)
	}

	mentions := make([]Mention, 0, len(mr.Data))
	for _, d := range mr.Data {
		mentions = append(mentions, Mention{ID: d.ID, AuthorID: d.AuthorID, Text: d.Text})
	}
	return mentions, mr.Meta.NewestID, nil
}
