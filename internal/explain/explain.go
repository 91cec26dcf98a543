// Package explain maps raw error signals onto human-readable explanations for
// the report. Every lookup is a pure function of its inputs.
package explain

import (
	"fmt"
	"strings"
)

// Severity grades how urgently a finding needs attention.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Explanation is a report-ready description of one error signal.
type Explanation struct {
	Title       string   `json:"title"`
	Explanation string   `json:"explanation"`
	Suggestion  string   `json:"suggestion"`
	Severity    Severity `json:"severity"`
}

var networkExplanations = map[int]Explanation{
	400: {
		Title:       "Bad Request",
		Explanation: "The server could not understand the request due to invalid syntax. This usually means the request was malformed or missing required parameters.",
		Suggestion:  "Check if the API endpoint expects specific parameters or headers. Verify the request format matches the API specification.",
		Severity:    SeverityMedium,
	},
	401: {
		Title:       "Unauthorized",
		Explanation: "Authentication is required to access this resource. The request lacks valid authentication credentials.",
		Suggestion:  "Ensure the user is logged in before accessing this page. Check if the authentication token is being sent correctly.",
		Severity:    SeverityHigh,
	},
	403: {
		Title:       "Forbidden",
		Explanation: "The server understood the request but refuses to authorize it. The user may not have permission to access this resource.",
		Suggestion:  "Verify user permissions and roles. Check if the resource requires specific access rights.",
		Severity:    SeverityHigh,
	},
	404: {
		Title:       "Not Found",
		Explanation: "The requested resource could not be found on the server. This could be a broken link, deleted resource, or incorrect URL.",
		Suggestion:  "Verify the URL is correct. Check if the resource was moved or deleted. Update any hardcoded links.",
		Severity:    SeverityMedium,
	},
	405: {
		Title:       "Method Not Allowed",
		Explanation: "The HTTP method used is not supported for this resource. For example, using POST when only GET is allowed.",
		Suggestion:  "Check the API documentation for supported HTTP methods. Ensure forms use the correct method.",
		Severity:    SeverityMedium,
	},
	500: {
		Title:       "Internal Server Error",
		Explanation: "The server encountered an unexpected condition that prevented it from fulfilling the request. This is a server-side issue.",
		Suggestion:  "Check server logs for detailed error messages. This requires backend investigation.",
		Severity:    SeverityCritical,
	},
	502: {
		Title:       "Bad Gateway",
		Explanation: "The server acting as a gateway received an invalid response from the upstream server.",
		Suggestion:  "Check if backend services are running. Verify load balancer and proxy configurations.",
		Severity:    SeverityCritical,
	},
	503: {
		Title:       "Service Unavailable",
		Explanation: "The server is temporarily unable to handle the request, possibly due to maintenance or overload.",
		Suggestion:  "Wait and retry. Check server status and resource utilization. Consider scaling if under heavy load.",
		Severity:    SeverityCritical,
	},
	504: {
		Title:       "Gateway Timeout",
		Explanation: "The server acting as a gateway did not receive a timely response from the upstream server.",
		Suggestion:  "Check backend service response times. Consider increasing timeout values or optimizing slow operations.",
		Severity:    SeverityHigh,
	},
}

// Network explains an HTTP error response by status code.
func Network(statusCode int) Explanation {
	if e, ok := networkExplanations[statusCode]; ok {
		return e
	}
	return Explanation{
		Title:       fmt.Sprintf("HTTP Error %d", statusCode),
		Explanation: fmt.Sprintf("The server returned status code %d.", statusCode),
		Suggestion:  "Investigate the server logs for more details.",
		Severity:    SeverityMedium,
	}
}

type consolePattern struct {
	substrings  []string
	explanation Explanation
}

// Ordered: first matching pattern wins.
var consolePatterns = []consolePattern{
	{
		substrings: []string{"undefined", "is not defined"},
		explanation: Explanation{
			Title:       "Undefined Variable/Function",
			Explanation: "A variable or function is being used before it's defined, or there's a typo in the name.",
			Suggestion:  "Check for typos in variable names. Ensure scripts are loaded in the correct order. Verify imports are correct.",
			Severity:    SeverityHigh,
		},
	},
	{
		substrings: []string{"cannot read property", "cannot read properties"},
		explanation: Explanation{
			Title:       "Null Reference Error",
			Explanation: "Attempting to access a property of null or undefined. The expected object doesn't exist.",
			Suggestion:  "Add null checks before accessing properties. Verify the data is loaded before using it. Use optional chaining (?.).",
			Severity:    SeverityHigh,
		},
	},
	{
		substrings: []string{"cors", "cross-origin"},
		explanation: Explanation{
			Title:       "CORS Policy Error",
			Explanation: "Cross-Origin Resource Sharing policy is blocking the request. The server doesn't allow requests from this origin.",
			Suggestion:  "Configure CORS headers on the server. Add the origin to allowed origins list. Use a proxy for development.",
			Severity:    SeverityHigh,
		},
	},
	{
		substrings: []string{"failed to fetch", "network error"},
		explanation: Explanation{
			Title:       "Network/Fetch Error",
			Explanation: "A network request failed. This could be due to connectivity issues, server being down, or CORS.",
			Suggestion:  "Check network connectivity. Verify the API endpoint is accessible. Check for CORS issues.",
			Severity:    SeverityHigh,
		},
	},
	{
		substrings: []string{"syntax error"},
		explanation: Explanation{
			Title:       "JavaScript Syntax Error",
			Explanation: "There's a syntax error in the JavaScript code that prevents it from executing.",
			Suggestion:  "Check for missing brackets, quotes, or semicolons. Use a linter to catch syntax errors.",
			Severity:    SeverityCritical,
		},
	},
	{
		substrings: []string{"type error", "typeerror"},
		explanation: Explanation{
			Title:       "Type Error",
			Explanation: "An operation was performed on an incompatible type, like calling a non-function or accessing properties of null.",
			Suggestion:  "Add type checking. Verify function arguments. Ensure data structures match expected types.",
			Severity:    SeverityHigh,
		},
	},
	{
		substrings: []string{"deprecated"},
		explanation: Explanation{
			Title:       "Deprecation Warning",
			Explanation: "A deprecated feature or API is being used. It may be removed in future versions.",
			Suggestion:  "Update to use the recommended alternative. Check documentation for migration guides.",
			Severity:    SeverityLow,
		},
	},
	{
		substrings: []string{"mixed content"},
		explanation: Explanation{
			Title:       "Mixed Content Warning",
			Explanation: "HTTP content is being loaded on an HTTPS page, which is a security risk.",
			Suggestion:  "Update all resource URLs to use HTTPS. Configure server to redirect HTTP to HTTPS.",
			Severity:    SeverityMedium,
		},
	},
}

// Console explains a console message by content pattern, falling back to a
// generic explanation keyed on the message type ("error", "warning", other).
func Console(message, messageType string) Explanation {
	lower := strings.ToLower(message)

	for _, p := range consolePatterns {
		for _, sub := range p.substrings {
			if strings.Contains(lower, sub) {
				return p.explanation
			}
		}
	}

	// Cookie warnings need both halves present, so they sit outside the
	// single-substring table.
	if strings.Contains(lower, "cookie") &&
		(strings.Contains(lower, "samesite") || strings.Contains(lower, "secure")) {
		return Explanation{
			Title:       "Cookie Security Warning",
			Explanation: "Cookies are being set without proper security attributes (SameSite, Secure).",
			Suggestion:  "Add SameSite and Secure attributes to cookies. Update cookie configuration on the server.",
			Severity:    SeverityMedium,
		}
	}

	switch messageType {
	case "error":
		return Explanation{
			Title:       "JavaScript Error",
			Explanation: "An error occurred during JavaScript execution.",
			Suggestion:  "Check the browser console for stack trace. Debug the error at the specified location.",
			Severity:    SeverityHigh,
		}
	case "warning":
		return Explanation{
			Title:       "Console Warning",
			Explanation: "A warning was logged, indicating a potential issue that doesn't break functionality.",
			Suggestion:  "Review the warning message and address if necessary. Warnings may become errors in future versions.",
			Severity:    SeverityLow,
		}
	}

	return Explanation{
		Title:       "Console Message",
		Explanation: "A message was logged to the console.",
		Suggestion:  "Review the message content for any issues.",
		Severity:    SeverityLow,
	}
}

// Element explains a failed element interaction. elementType is the tested
// element's category ("button", "link", ...) and is woven into the text.
func Element(errorMessage, elementType string) Explanation {
	lower := strings.ToLower(errorMessage)

	switch {
	case strings.Contains(lower, "timeout"):
		return Explanation{
			Title:       "Interaction Timeout",
			Explanation: fmt.Sprintf("The %s took too long to respond or become interactive.", elementType),
			Suggestion:  "Check if the element is properly loaded. Verify no overlays are blocking it. Consider increasing timeout.",
			Severity:    SeverityMedium,
		}
	case strings.Contains(lower, "not visible") || strings.Contains(lower, "hidden"):
		return Explanation{
			Title:       "Element Not Visible",
			Explanation: fmt.Sprintf("The %s exists in the DOM but is not visible on the page.", elementType),
			Suggestion:  "Check CSS display/visibility properties. Ensure the element is not hidden behind other elements.",
			Severity:    SeverityMedium,
		}
	case strings.Contains(lower, "detached"):
		return Explanation{
			Title:       "Element Detached",
			Explanation: fmt.Sprintf("The %s was removed from the DOM during the interaction.", elementType),
			Suggestion:  "The page may have reloaded or the element was dynamically removed. Add wait for element stability.",
			Severity:    SeverityHigh,
		}
	case strings.Contains(lower, "intercept") || strings.Contains(lower, "click"):
		return Explanation{
			Title:       "Click Intercepted",
			Explanation: fmt.Sprintf("Another element is covering the %s and intercepting the click.", elementType),
			Suggestion:  "Check for modals, overlays, or fixed elements blocking the target. Close any open dialogs first.",
			Severity:    SeverityMedium,
		}
	}

	return Explanation{
		Title:       "Element Interaction Error",
		Explanation: fmt.Sprintf("An error occurred while interacting with the %s.", elementType),
		Suggestion:  "Check the element's state and ensure it's interactive. Review the full error message.",
		Severity:    SeverityMedium,
	}
}

// Page explains a page-level load or navigation failure.
func Page(errorMessage string) Explanation {
	lower := strings.ToLower(errorMessage)

	switch {
	case strings.Contains(lower, "timeout"):
		return Explanation{
			Title:       "Page Load Timeout",
			Explanation: "The page took too long to load completely.",
			Suggestion:  "Check server response time. Optimize page assets. Consider lazy loading for large resources.",
			Severity:    SeverityHigh,
		}
	case strings.Contains(lower, "navigation"):
		return Explanation{
			Title:       "Navigation Error",
			Explanation: "Failed to navigate to the page.",
			Suggestion:  "Verify the URL is correct and accessible. Check for redirects or authentication requirements.",
			Severity:    SeverityHigh,
		}
	}

	return Explanation{
		Title:       "Page Error",
		Explanation: "An error occurred while loading or interacting with the page.",
		Suggestion:  "Review the full error message for specific details.",
		Severity:    SeverityMedium,
	}
}
