package textproc

// Portuguese stopword list, after the NLTK corpus, ASCII-folded ("nao",
// "voce", "ate") to match the tokenizer, which only emits ASCII runs.
var portugueseStopwords = []string{
	"a", "ao", "aos", "aquela", "aquelas", "aquele", "aqueles", "aquilo",
	"as", "ate", "com", "como", "da", "das", "de", "dela", "delas", "dele",
	"deles", "depois", "do", "dos", "e", "ela", "elas", "ele", "eles", "em",
	"entre", "era", "eram", "essa", "essas", "esse", "esses", "esta",
	"estamos", "estao", "estas", "estava", "estavam", "este", "esteja",
	"estejam", "estejamos", "estes", "esteve", "estive", "estivemos",
	"estiver", "estivera", "estiveram", "estiverem", "estivermos", "estou",
	"eu", "foi", "fomos", "for", "fora", "foram", "forem", "formos", "fosse",
	"fossem", "fui", "ha", "haja", "hajam", "hajamos", "hao", "havemos",
	"hei", "houve", "houvemos", "houver", "houvera", "houveram", "houverao",
	"houverei", "houverem", "houveremos", "houveria", "houveriam",
	"houvermos", "houvesse", "houvessem", "isso", "isto", "ja", "lhe",
	"lhes", "mais", "mas", "me", "mesmo", "meu", "meus", "minha", "minhas",
	"muito", "na", "nao", "nas", "nem", "no", "nos", "nossa", "nossas",
	"nosso", "nossos", "num", "numa", "o", "os", "ou", "para", "pela",
	"pelas", "pelo", "pelos", "por", "qual", "quando", "que", "quem", "sao",
	"se", "seja", "sejam", "sejamos", "sem", "sera", "serao", "serei",
	"seremos", "seria", "seriam", "seu", "seus", "so", "somos", "sou", "sua",
	"suas", "tambem", "te", "tem", "temos", "tenha", "tenham", "tenhamos",
	"tenho", "tera", "terao", "terei", "teremos", "teria", "teriam", "teu",
	"teus", "teve", "tinha", "tinham", "tive", "tivemos", "tiver", "tivera",
	"tiveram", "tiverem", "tivermos", "tivesse", "tivessem", "tu", "tua",
	"tuas", "um", "uma", "voce", "voces", "vos",
}
