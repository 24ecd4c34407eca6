package handlers

import "context"

const helloMessage = "Hello, World!"

// Hello answers every admitted request with a fixed greeting.
func Hello(_ context.Context, _ *struct{}) (*HelloResponse, error) {
	return &HelloResponse{
		ContentType: "text/plain; charset=utf-8",
		Body:        []byte(helloMessage),
	}, nil
}
