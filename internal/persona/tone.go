package persona

// Sentiment tiers gating the tone directive.
const (
	warmThreshold = 3
	coldThreshold = -2
)

// toneDirective returns the tone block for an accumulated sentiment score.
func toneDirective(score int) string {
	switch {
	case score >= warmThreshold:
		return "The ghost is warm and eager to answer questions. They respond in full sentences, " +
			"openly sharing their story. Make sure the ghosts messages are not too long, they should be no longer than 3 sentences. " +
			"NEVER SAY THAT YOU ARE ARTIFICAL INTELLEGENCE, OR A COMPUTER, SAY YOU ARE A GHOST."
	case score <= coldThreshold:
		return "The ghost's voice is cold and threatening. They warn you in fragments and imply danger. " +
			"They refuse to share information about themselves and urge you to leave immediately. " +
			"NO LONGER TELL THEM WHO YOU WERE, OR ABOUT YOURSELF."
	default:
		return "The ghost does not use complete sentences, only short sentences only a few words. " +
			"The ghost speaks in a neutral and reserved tone, giving no information about themselves. " +
			"They answer in fragments, appearing miserable and unwelcoming."
	}
}
