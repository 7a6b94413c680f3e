package dto

import "github.com/gofiber/fiber/v2"

// Envelope codes. Every failure uses CodeFailure regardless of its HTTP status.
const (
	CodeSuccess = "200"
	CodeFailure = "500"
)

// Envelope flattens data fields next to message and code.
func Envelope(message, code string, data fiber.Map) fiber.Map {
	body := fiber.Map{}
	for k, v := range data {
		body[k] = v
	}
	body["message"] = message
	body["code"] = code
	return body
}

// Success builds a success envelope.
func Success(message string, data fiber.Map) fiber.Map {
	return Envelope(message, CodeSuccess, data)
}

// Failure builds an error envelope carrying the error kind.
func Failure(message, kind string, details map[string]any) fiber.Map {
	data := fiber.Map{"error": kind}
	if len(details) > 0 {
		data["details"] = details
	}
	return Envelope(message, CodeFailure, data)
}
