package joke

// DefaultPool is the built-in collection of cat jokes.
var DefaultPool = []string{
	"Meow, I tried to think of something witty, but I got distracted by a formatting error.",
	"I knocked your margins off the table. They were hanging over the edge anyway.",
	"This layout has more overfull boxes than my cardboard collection.",
	"I sat on your keyboard and the spacing still looks better than this paragraph.",
	"Your figures float like a cat in a bathtub: reluctantly and in the wrong place.",
	"I have nine lives and I spent one of them reading this bibliography.",
	"Purr-haps consider a consistent font? Just a suggestion from your local critic.",
	"I would hide under this table, but it runs straight off the page.",
	"That heading is stranded alone at the bottom of the page. I know the feeling at 3 a.m.",
	"I judge documents the way I judge humans: silently, then all at once.",
	"Your bullet points are less aligned than my sleep schedule.",
	"I've coughed up hairballs with better kerning.",
	"Text occlusion? I also like to sit on top of important things.",
	"This page has more white space than my food bowl at dinner time.",
	"I approve of the layout. Now fill my bowl.",
	"If it fits, I sits. This table does not fit.",
	"I only review PDFs for the treats. Please send treats.",
	"Nice document. I will now push it off the desk.",
	"My whiskers detect a misaligned caption.",
	"Ten out of ten, would nap on this page.",
	"The line spacing here is almost as relaxed as I am.",
	"I found a widow line. I stared at it until it left.",
	"Criticat has spoken. Criticat now requires a nap.",
	"Your hyperlinks repeat more than my demands for breakfast.",
	"I'm not saying the typesetting is bad, I'm just flicking my tail meaningfully.",
}
