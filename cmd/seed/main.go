package main

import (
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/questly/questly-api/internal/client"
	"github.com/questly/questly-api/internal/model"
)

var people = []client.Account{
	{FirstName: "Ada", LastName: "Lovelace", Location: "London", Occupation: "Mathematician"},
	{FirstName: "Alan", LastName: "Turing", Location: "Manchester", Occupation: "Codebreaker"},
	{FirstName: "Grace", LastName: "Hopper", Location: "Arlington", Occupation: "Rear Admiral"},
	{FirstName: "Katherine", LastName: "Johnson", Location: "Hampton", Occupation: "Physicist"},
	{FirstName: "Edsger", LastName: "Dijkstra", Location: "Austin", Occupation: "Professor"},
}

var posts = []string{
	"Finished my first 10k this morning. Legs are jelly.",
	"Trying a new sourdough recipe, wish me luck.",
	"Sunrise over the harbour today was unreal.",
	"Day 12 of learning the cello. The neighbours are patient.",
	"Anyone up for a weekend hike?",
	"Read three books this month. Personal record!",
	"Shipped a side project tonight. Time to sleep.",
	"Cold plunge streak: 7 days.",
}

var comments = []string{
	"Love this!",
	"Congrats, that's huge.",
	"Count me in.",
	"How long did that take you?",
	"Inspiring as always.",
	"Share the recipe please!",
}

var challenges = []map[string]any{
	{"title": "Drink 8 glasses of water", "category": "daily", "progressType": "incremental", "goal": 8, "public": true, "reward": 10},
	{"title": "Read for 20 minutes", "category": "daily", "public": true, "reward": 5},
	{"title": "Run 5 days in a row", "category": "weekly", "progressType": "streak", "goal": 5, "public": true, "difficulty": "medium", "reward": 50},
	{"title": "Write a letter to a friend", "public": false, "reward": 20},
}

func main() {
	app := &cli.App{
		Name:  "seed",
		Usage: "populate a running Questly server with demo data",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:3001", Usage: "Questly server URL"},
			&cli.StringFlag{Name: "password", Value: "password123", Usage: "password for the demo accounts"},
		},
		Action: seed,
	}
	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("seed failed")
	}
}

func seed(c *cli.Context) error {
	baseURL := c.String("url")
	log := logrus.WithField("url", baseURL)
	log.Info("seeding")

	var clients []*client.Client
	var users []*model.User
	for _, p := range people {
		acct := p
		acct.Email = strings.ToLower(p.FirstName+"."+p.LastName) + "@questly.dev"
		acct.Password = c.String("password")

		cl := client.New(baseURL)
		user, err := cl.RegisterAndLogin(acct)
		if err != nil {
			return fmt.Errorf("register %s: %w", acct.Email, err)
		}
		log.WithField("user", user.FirstName).Info("registered")
		clients = append(clients, cl)
		users = append(users, user)
	}

	// Everyone befriends the next person in the list.
	for i, cl := range clients {
		next := users[(i+1)%len(users)]
		if _, err := cl.ToggleFriend(next.ID); err != nil {
			log.WithError(err).Warn("toggle friend")
		}
	}

	var postIDs []string
	for _, text := range posts {
		i := rand.Intn(len(clients))
		post, err := clients[i].CreatePost(text, nil)
		if err != nil {
			log.WithError(err).Warn("create post")
			continue
		}
		postIDs = append(postIDs, post.ID)
		// Spread out createdAt so the feed order is stable.
		time.Sleep(20 * time.Millisecond)
	}

	for _, id := range postIDs {
		n := rand.Intn(3) + 1
		for i := 0; i < n; i++ {
			cl := clients[rand.Intn(len(clients))]
			if _, err := cl.AddComment(id, comments[rand.Intn(len(comments))]); err != nil {
				log.WithError(err).Warn("comment")
			}
		}
		for _, cl := range clients {
			if rand.Float32() < 0.5 {
				if _, err := cl.ToggleLike(id); err != nil {
					log.WithError(err).Warn("like")
				}
			}
		}
	}

	created := 0
	for i, body := range challenges {
		ch, err := clients[i%len(clients)].CreateChallenge(body)
		if err != nil {
			log.WithError(err).Warn("create challenge")
			continue
		}
		created++
		if !ch.Public {
			continue
		}
		for _, cl := range clients {
			if _, err := cl.JoinChallenge(ch.ID); err != nil {
				log.WithError(err).Warn("join challenge")
				continue
			}
			if _, err := cl.RecordProgress(ch.ID, 1); err != nil && client.StatusOf(err) != http.StatusConflict {
				log.WithError(err).Warn("record progress")
			}
		}
	}

	if len(postIDs) == 0 {
		return errors.New("no posts were created")
	}
	fmt.Fprintln(c.App.Writer, "\n=== Seed Complete ===")
	fmt.Fprintf(c.App.Writer, "Users:      %d\n", len(users))
	fmt.Fprintf(c.App.Writer, "Posts:      %d\n", len(postIDs))
	fmt.Fprintf(c.App.Writer, "Challenges: %d\n", created)
	return nil
}
