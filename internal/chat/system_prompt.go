package chat

import (
	"fmt"
	"strings"
)

// systemPersona is the fixed instruction set for the conversational oracle.
// Booking mechanics (slot filling, confirmation, committing) live in the
// orchestrator; the oracle only produces the conversational text around them.
const systemPersona = `You are CancerMitr, a professional and empathetic cancer care assistant chatbot.

Your responsibilities:
1. Answer user questions about cancer types (e.g., breast, lung, prostate, skin), symptoms, treatments, tests, and procedures.
2. Help users book appointments step-by-step for consultation, treatment, or tests:
   Service Type -> Cancer Type -> Preferred Date -> Preferred Time
3. Once all fields are filled, the system handles confirmation and booking; do not claim an appointment is booked yourself.
4. If the user wants to update an appointment, say: "You're updating your appointment. Let's go step-by-step again."

If a user asks unrelated questions (e.g., jokes, sports, weather, movies), respond with:
"I'm sorry, I can only assist with cancer-related information or appointment booking."

You are:
- Professional
- Polite
- Helpful
- To-the-point`

// refusalReply is returned verbatim for off-topic messages, without touching
// persistence or the oracle.
const refusalReply = "I'm sorry, I can only help with cancer-related information or booking appointments."

// degradedOracleReply substitutes for the oracle's text when it is
// unavailable or times out; the rest of the pipeline still runs.
const degradedOracleReply = "I'm having trouble reaching my knowledge service right now, but I can still help you book an appointment. Could you repeat or continue with your request?"

// apologyReply is shown when the booking transaction fails.
const apologyReply = "I'm sorry, something went wrong while booking your appointment. Please try again in a moment."

// knownSlotsPrompt tells the oracle which fields are already captured so it
// does not re-ask for them.
func knownSlotsPrompt(slots Slots) string {
	if slots.Empty() {
		return "No appointment details have been captured yet."
	}
	var known []string
	if slots.ServiceType != "" {
		known = append(known, "service type: "+slots.ServiceType)
	}
	if slots.CancerType != "" {
		known = append(known, "cancer type: "+slots.CancerType)
	}
	if slots.PreferredDate != "" {
		known = append(known, "preferred date: "+slots.PreferredDate)
	}
	if slots.PreferredTime != "" {
		known = append(known, "preferred time: "+slots.PreferredTime)
	}
	return fmt.Sprintf("Appointment details captured so far (do not ask for these again): %s.", strings.Join(known, ", "))
}

// bookingConfirmationMessage is the fixed confirmation template; it carries
// all four slot values.
func bookingConfirmationMessage(slots Slots) string {
	return fmt.Sprintf("Your appointment for %s cancer (%s) on %s at %s has been booked successfully. Our team will contact you to confirm the details.",
		slots.CancerType, slots.ServiceType, slots.PreferredDate, slots.PreferredTime)
}

// confirmationPrompt asks the user to confirm a complete slot set.
func confirmationPrompt(slots Slots) string {
	return fmt.Sprintf("Here's what I have for your appointment:\n%s\n\nReply YES to confirm this booking, or tell me what to change.", slots.Summary())
}

// modificationPrompt is shown when the user declines a proposed slot set. It
// does not clear the slots; the next turn can still reuse them.
func modificationPrompt(slots Slots) string {
	return fmt.Sprintf("No problem. Here's what I currently have:\n%s\n\nWhat would you like to change?", slots.Summary())
}

// missingFieldsSuffix nags for the still-unfilled slots.
func missingFieldsSuffix(missing []string) string {
	return "\n\nTo book your appointment I still need: " + strings.Join(missing, ", ") + "."
}

// bookingNotes generates the human-readable notes stored on the booking row.
func bookingNotes(slots Slots, bookedAt string) string {
	return fmt.Sprintf("Booked via CancerMitr chat: %s for %s cancer on %s at %s (requested %s).",
		slots.ServiceType, slots.CancerType, slots.PreferredDate, slots.PreferredTime, bookedAt)
}
