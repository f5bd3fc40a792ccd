// Package publisher posts rendered episode analyses to an external
// page-publishing service over HTTP.
//
// The wire contract is deliberately small: one authenticated POST carrying
// the page title, markdown body, and destination, answered with a receipt
// identifying the created page. The receipt is persisted to the episode
// working directory so reruns can tell the episode has already been
// published.
package publisher
