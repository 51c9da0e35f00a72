package ledger

// HarbergerABI cobre as leituras e eventos do contrato usados pela réplica.
const HarbergerABI = `[
  {"type":"function","name":"assets","stateMutability":"view",
   "inputs":[{"name":"","type":"uint256"}],
   "outputs":[
     {"name":"active","type":"bool"},
     {"name":"owner","type":"address"},
     {"name":"tax","type":"uint256"},
     {"name":"lastPaymentDate","type":"uint256"},
     {"name":"price","type":"uint256"},
     {"name":"balance","type":"uint256"},
     {"name":"ownerURI","type":"string"},
     {"name":"metaURI","type":"string"}]},
  {"type":"function","name":"balanceExpiration","stateMutability":"view",
   "inputs":[{"name":"_tokenId","type":"uint256"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"currency","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"event","name":"Transfer","anonymous":false,"inputs":[
     {"name":"_from","type":"address","indexed":true},
     {"name":"_to","type":"address","indexed":true},
     {"name":"_tokenId","type":"uint256","indexed":true}]},
  {"type":"event","name":"Balance","anonymous":false,"inputs":[
     {"name":"_tokenId","type":"uint256","indexed":true},
     {"name":"_balance","type":"uint256","indexed":false},
     {"name":"_expiration","type":"uint64","indexed":false}]},
  {"type":"event","name":"Price","anonymous":false,"inputs":[
     {"name":"_tokenId","type":"uint256","indexed":true},
     {"name":"_price","type":"uint256","indexed":false}]},
  {"type":"event","name":"OwnerURI","anonymous":false,"inputs":[
     {"name":"_tokenId","type":"uint256","indexed":true},
     {"name":"_uri","type":"string","indexed":false}]},
  {"type":"event","name":"Tax","anonymous":false,"inputs":[
     {"name":"_tokenId","type":"uint256","indexed":true},
     {"name":"_tax","type":"uint256","indexed":false}]},
  {"type":"event","name":"MetaURI","anonymous":false,"inputs":[
     {"name":"_tokenId","type":"uint256","indexed":true},
     {"name":"_uri","type":"string","indexed":false}]}
]`

// TokenABI é a parte do token de pagamento usada para transferir com payload.
const TokenABI = `[
  {"type":"function","name":"send","stateMutability":"nonpayable",
   "inputs":[
     {"name":"recipient","type":"address"},
     {"name":"amount","type":"uint256"},
     {"name":"data","type":"bytes"}],
   "outputs":[]}
]`
