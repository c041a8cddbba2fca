package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

// Small operator tool: sends one message through a running bot's HTTP API.
func main() {
	baseURL := os.Getenv("BOT_API_URL")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:9876"
	}

	if len(os.Args) < 3 {
		fmt.Println("Usage: send-message <recipient|group:GROUP_ID> <message>")
		os.Exit(1)
	}

	target := os.Args[1]
	message := os.Args[2]

	body := map[string]string{"message": message}
	if len(target) > 6 && target[:6] == "group:" {
		body["group_id"] = target[6:]
	} else {
		body["recipient"] = target
	}

	data, _ := json.Marshal(body)
	resp, err := http.Post(baseURL+"/api/send", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var result struct {
		Success     bool   `json:"success"`
		Unconfirmed bool   `json:"unconfirmed"`
		Error       string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		fmt.Printf("Error: bad response: %v\n", err)
		os.Exit(1)
	}
	if !result.Success {
		fmt.Printf("Error: %s\n", result.Error)
		os.Exit(1)
	}

	if result.Unconfirmed {
		fmt.Println("Message sent (unconfirmed by daemon)")
	} else {
		fmt.Println("Message sent successfully!")
	}
}
